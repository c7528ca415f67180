package utils

import (
	"context"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var (
	i18nBundle *i18n.Bundle
	// Кеш локализаторов для разных языков
	// Кешируются только инструменты перевода, не данные пользователей
	localizerCache = make(map[string]*i18n.Localizer)
	localizerMutex sync.RWMutex
)

type languageContextKey struct{}

// SetI18nBundle sets the global bundle and drops cached localizers
func SetI18nBundle(bundle *i18n.Bundle) {
	localizerMutex.Lock()
	i18nBundle = bundle
	localizerCache = make(map[string]*i18n.Localizer)
	localizerMutex.Unlock()
}

// GetI18nBundle returns the global bundle
func GetI18nBundle() *i18n.Bundle {
	localizerMutex.RLock()
	defer localizerMutex.RUnlock()
	return i18nBundle
}

// WithLanguage stores the request language (an Accept-Language value or a tag) in ctx
func WithLanguage(ctx context.Context, lang string) context.Context {
	if lang == "" {
		return ctx
	}
	return context.WithValue(ctx, languageContextKey{}, lang)
}

// GetLanguage returns the request language or "en"
func GetLanguage(ctx context.Context) string {
	if lang, ok := ctx.Value(languageContextKey{}).(string); ok && lang != "" {
		return lang
	}
	return "en"
}

func getLocalizer(lang string) *i18n.Localizer {
	localizerMutex.RLock()
	if localizer, ok := localizerCache[lang]; ok {
		localizerMutex.RUnlock()
		return localizer
	}
	bundle := i18nBundle
	localizerMutex.RUnlock()

	if bundle == nil {
		return nil
	}

	localizerMutex.Lock()
	defer localizerMutex.Unlock()

	// Проверяем еще раз после получения write lock (double-check pattern)
	if localizer, ok := localizerCache[lang]; ok {
		return localizer
	}

	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	langs := make([]string, 0, len(tags))
	for _, tag := range tags {
		langs = append(langs, tag.String())
	}

	localizer := i18n.NewLocalizer(bundle, langs...)
	localizerCache[lang] = localizer

	return localizer
}

// TemplateData holds template values for a localized message
type TemplateData map[string]interface{}

// T returns the localized message for messageID, or fallback when no translation exists
func T(ctx context.Context, messageID, fallback string, data ...TemplateData) string {
	lang := GetLanguage(ctx)

	localizer := getLocalizer(lang)
	if localizer == nil {
		return fallback
	}

	config := &i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID:    messageID,
			Other: fallback,
		},
	}
	if len(data) > 0 {
		config.TemplateData = data[0]
	}

	msg, err := localizer.Localize(config)
	if err != nil {
		Logger.Debug("Failed to localize message",
			zap.String("messageID", messageID),
			zap.String("language", lang),
			zap.Error(err),
		)
		if msg == "" {
			return fallback
		}
	}

	return msg
}
