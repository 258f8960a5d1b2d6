package domain

import (
	"strings"
	"time"
)

// Client is a business profile articles are generated for.
type Client struct {
	ID                   string
	Name                 string
	PlaceURL             *string
	Category             *string
	BaseGuide            *string
	Keywords             *string
	DefaultStyleID       *string
	Memo                 *string
	RequiresConfirmation bool
	CreatedAt            time.Time
}

// KeywordList splits the comma-separated keyword field into trimmed tokens.
func (c *Client) KeywordList() []string {
	if c == nil || c.Keywords == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(*c.Keywords, ",") {
		if k := strings.TrimSpace(part); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// StylePreset is an optional named override of tone/length/platform rules,
// attachable to a client or a specific job.
type StylePreset struct {
	ID         string
	ClientID   *string
	Tone       *string
	LengthHint *string
	Platform   *string
	ExtraRules *string
	CreatedAt  time.Time
}
