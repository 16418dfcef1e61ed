package i18n

import (
	"embed"
	"encoding/json"
	"path"

	"GuardianSOS/pkg/logger"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var supported = []language.Tag{language.Korean, language.English}

// I18nSupport 国际化支持结构体
type I18nSupport struct {
	bundle      *i18n.Bundle
	defaultLang string
	matcher     language.Matcher
}

// NewI18nSupport loads the embedded ko/en message files.
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		tag = language.Korean
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		p := path.Join("locales", e.Name())
		buf, err := localeFS.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, p); err != nil {
			return nil, err
		}
	}

	base, _ := tag.Base()
	return &I18nSupport{
		bundle:      bundle,
		defaultLang: base.String(),
		matcher:     language.NewMatcher(supported),
	}, nil
}

// Match picks ko or en from an explicit choice and an Accept-Language header.
func (i *I18nSupport) Match(explicit, acceptLanguage string) string {
	var want []language.Tag
	if explicit != "" {
		if t, err := language.Parse(explicit); err == nil {
			want = append(want, t)
		}
	}
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			want = append(want, tags...)
		}
	}
	if len(want) == 0 {
		return i.defaultLang
	}
	_, idx, conf := i.matcher.Match(want...)
	if conf == language.No {
		return i.defaultLang
	}
	base, _ := supported[idx].Base()
	return base.String()
}

func (i *I18nSupport) DefaultLang() string { return i.defaultLang }

// T 获取翻译文本，找不到时返回键名
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag, i.defaultLang)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		logger.Warn("i18n: missing translation", zap.String("key", key), zap.String("lang", languageTag))
		return key
	}
	return translation
}
