package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/llm"
	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
)

const (
	SystemPrompt = "당신은 긴급 상황 분석 전문가입니다. " +
		"주어진 음성 텍스트를 분석하여 어떤 위급 상황인지 판단하고, " +
		"상황의 심각도와 필요한 조치사항을 간단명료하게 설명해주세요. " +
		"분석 결과는 200자 이내로 작성해주세요."

	FallbackAnalysisFailed = "AI 분석 실패 - 긴급 상황으로 추정되어 알림을 발송합니다"
	FallbackNoTranscript   = "음성 인식 실패 - 긴급 버튼이 눌렸습니다. 즉시 확인이 필요합니다."

	temperature = 0.3
)

// Fallback reasons reported in Result.Fallback.
const (
	ReasonNone         = ""
	ReasonNoTranscript = "no_transcript"
	ReasonFailed       = "analysis_failed"
)

var ErrEmptyAnalysis = errors.New("analysis: model returned empty text")

// Analyzer turns a transcript into a short free-text situation analysis.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

// LLMAnalyzer asks a chat model. The system prompt is bound to the llm handler.
type LLMAnalyzer struct {
	llm       llm.LLM
	model     string
	maxTokens int
}

func NewLLMAnalyzer(l llm.LLM, model string, maxTokens int) *LLMAnalyzer {
	return &LLMAnalyzer{llm: l, model: model, maxTokens: maxTokens}
}

func BuildUserPrompt(transcript string) string {
	return "다음은 긴급 상황에서 녹음된 음성을 텍스트로 변환한 내용입니다:\n\n" +
		transcript + "\n\n" +
		"이 상황을 분석하여 다음 정보를 제공해주세요:\n" +
		"1. 상황의 종류 (사고, 폭행, 납치, 응급의료, 화재, 재난 등)\n" +
		"2. 상황의 심각도\n" +
		"3. 즉각적으로 필요한 조치"
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	out, err := a.llm.Query(ctx, a.model, BuildUserPrompt(transcript),
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(a.maxTokens))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyAnalysis
	}
	return out, nil
}

type Result struct {
	Analysis string
	Type     models.EmergencyType
	Fallback string
}

// Classifier wraps an Analyzer with a deadline and the fixed fallbacks.
// It never returns an error.
type Classifier struct {
	analyzer Analyzer
	timeout  time.Duration
}

// NewClassifier analyzer may be nil, every transcript then takes the failure fallback.
func NewClassifier(analyzer Analyzer, timeout time.Duration) *Classifier {
	return &Classifier{analyzer: analyzer, timeout: timeout}
}

func (c *Classifier) Classify(ctx context.Context, transcript string) Result {
	if strings.TrimSpace(transcript) == "" {
		return Result{Analysis: FallbackNoTranscript, Type: models.EmergencyOther, Fallback: ReasonNoTranscript}
	}
	if c.analyzer == nil {
		return Result{Analysis: FallbackAnalysisFailed, Type: models.EmergencyOther, Fallback: ReasonFailed}
	}

	actx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	text, err := c.analyzer.Analyze(actx, transcript)
	if err != nil {
		logger.Warn("situation analysis failed, using fallback", zap.Error(err))
		return Result{Analysis: FallbackAnalysisFailed, Type: models.EmergencyOther, Fallback: ReasonFailed}
	}
	return Result{Analysis: text, Type: DetermineEmergencyType(text)}
}

var keywordTable = []struct {
	typ      models.EmergencyType
	keywords []string
}{
	{models.EmergencyAccident, []string{"사고", "accident"}},
	{models.EmergencyAssault, []string{"폭행", "범죄", "assault"}},
	{models.EmergencyKidnapping, []string{"납치", "유괴", "kidnap"}},
	{models.EmergencyMedical, []string{"응급", "의료", "medical"}},
	{models.EmergencyFire, []string{"화재", "fire"}},
	{models.EmergencyNaturalDisaster, []string{"재난", "disaster"}},
	{models.EmergencyStalking, []string{"스토킹", "stalking"}},
}

// DetermineEmergencyType scans the lower-cased text; the first type in
// table order with a matching keyword wins, OTHER otherwise.
func DetermineEmergencyType(text string) models.EmergencyType {
	lower := strings.ToLower(text)
	for _, row := range keywordTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.typ
			}
		}
	}
	return models.EmergencyOther
}
