package pipeline

import (
	"context"
	"strings"

	"draftdesk/internal/infra"
	"draftdesk/internal/providers/anthropic"
)

const (
	maxImagesPerRequest   = 3
	maxSingleImageRetries = 5
	visionMaxTokens       = 1000
)

const batchVisionPrompt = `이 사진들을 분석하여 원고 작성에 활용할 수 있는 키워드와 인상, 분위기를 간단히 정리해주세요. 각 사진에 대해 1-2문장으로 요약해주세요.

🚫🚫🚫 절대 금지 사항 (매우 중요):
- 사진에 보이는 모든 숫자 (가격, 시간, 번호, 점수, 날짜, 수량 등) 절대 언급 금지
- 사진에 보이는 모든 영어 단어, 문장, 텍스트 절대 언급 금지
- 시험지, 문제지, 교재, 학습 자료에 적힌 내용 절대 언급 금지
- 숫자나 영어는 OCR 오인식이 매우 높으므로 절대 사용하지 마세요

✅ 허용 사항:
- 오직 시각적 인상, 분위기, 색감, 공간감, 느낌, 분위기만 묘사
- 예: "밝고 깔끔한 공간", "정돈된 분위기", "편안한 느낌" 등
- 구체적인 텍스트나 숫자는 절대 포함하지 마세요`

const singleVisionPrompt = `이 사진을 분석하여 원고 작성에 활용할 수 있는 키워드와 인상, 분위기를 간단히 정리해주세요. 1-2문장으로 요약해주세요.

⚠️ 매우 중요: 사진에 보이는 숫자(예: 가격, 시간, 번호 등)나 영어 단어/문장은 절대 언급하지 마세요. 숫자나 영어는 정확하지 않을 수 있으므로, 오직 시각적 인상, 분위기, 색감, 공간감, 느낌 등만 묘사해주세요.`

// Describer turns job images into short Korean impression notes used as
// soft context by the prompt assembly.
type Describer struct {
	factory *anthropic.Factory
	logger  infra.Logger
}

func NewDescriber(factory *anthropic.Factory, logger infra.Logger) *Describer {
	return &Describer{factory: factory, logger: logger}
}

// Describe sends images in batches of up to three per request and collects
// the returned description lines. Vision is best effort: a batch that keeps
// failing is skipped and never fails the job.
func (d *Describer) Describe(ctx context.Context, images [][]byte) []string {
	if len(images) == 0 {
		return nil
	}

	client, err := d.factory.Acquire()
	if err != nil {
		d.logger.Error().Err(err).Msg("vision: no usable api key")
		return nil
	}

	var descriptions []string
	for start := 0; start < len(images); start += maxImagesPerRequest {
		end := start + maxImagesPerRequest
		if end > len(images) {
			end = len(images)
		}
		batch := images[start:end]

		lines, err := d.describeBatch(ctx, client, batch)
		if err == nil {
			descriptions = append(descriptions, lines...)
			continue
		}
		d.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("vision batch failed")

		switch {
		case anthropic.IsCreditError(err), anthropic.IsAuthError(err):
			d.factory.MarkError(client)
			next, acqErr := d.factory.Acquire()
			if acqErr != nil {
				d.logger.Error().Err(acqErr).Msg("vision: key rotation failed")
				continue
			}
			client = next
			lines, retryErr := d.describeBatch(ctx, client, batch)
			if retryErr != nil {
				d.logger.Warn().Err(retryErr).Msg("vision retry failed, skipping batch")
				continue
			}
			descriptions = append(descriptions, lines...)
		case anthropic.IsPayloadTooLarge(err):
			// Request too big for one call; fall back to one image at a time.
			client = d.describeSingles(ctx, client, batch, &descriptions)
		default:
			// Transient or unknown failure. Skip the batch and move on.
		}
	}
	return descriptions
}

func (d *Describer) describeBatch(ctx context.Context, client *anthropic.Client, batch [][]byte) ([]string, error) {
	content := make([]anthropic.ContentBlock, 0, len(batch)+1)
	content = append(content, anthropic.TextBlock(batchVisionPrompt))
	for _, img := range batch {
		content = append(content, anthropic.ImageBlock("image/jpeg", img))
	}
	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		MaxTokens: visionMaxTokens,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}
	return splitLines(resp.FirstText()), nil
}

// describeSingles retries each image of an oversized batch individually,
// rotating keys on credential errors. It returns the client in use when the
// loop finishes so the caller keeps rotating from the same position.
func (d *Describer) describeSingles(ctx context.Context, client *anthropic.Client, batch [][]byte, out *[]string) *anthropic.Client {
	for _, img := range batch {
		for attempt := 1; attempt <= maxSingleImageRetries; attempt++ {
			resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
				MaxTokens: visionMaxTokens,
				Content: []anthropic.ContentBlock{
					anthropic.TextBlock(singleVisionPrompt),
					anthropic.ImageBlock("image/jpeg", img),
				},
			})
			if err == nil {
				*out = append(*out, splitLines(resp.FirstText())...)
				break
			}
			d.logger.Warn().Err(err).Int("attempt", attempt).Msg("single image vision failed")
			if anthropic.IsAuthError(err) || anthropic.IsCreditError(err) {
				d.factory.MarkError(client)
				next, acqErr := d.factory.Acquire()
				if acqErr != nil {
					d.logger.Error().Err(acqErr).Msg("vision: key rotation failed")
					return client
				}
				client = next
			}
		}
	}
	return client
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
