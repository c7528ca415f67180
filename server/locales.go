package server

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"api/locales"
	"api/utils"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// InitI18n builds the translation bundle from the embedded locales and,
// when LOCALES_DIR is set, from the JSON files found there
func InitI18n() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	if err := LoadTranslations(bundle, locales.Files); err != nil {
		utils.Logger.Error("Failed to load translations", zap.Error(err))
		return nil, err
	}

	if dir := os.Getenv("LOCALES_DIR"); dir != "" {
		if err := LoadTranslations(bundle, os.DirFS(dir)); err != nil {
			utils.Logger.Error("Failed to load translations",
				zap.String("path", dir),
				zap.Error(err),
			)
			return nil, err
		}
	}

	utils.Logger.Info("Translations loaded successfully",
		zap.Int("languages", len(bundle.LanguageTags())),
	)
	return bundle, nil
}

// LoadTranslations loads every JSON file of fsys into the bundle
func LoadTranslations(bundle *i18n.Bundle, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		utils.Logger.Debug("Loading translation file", zap.String("file", path))
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		// the bundle derives the language from the file name
		_, err = bundle.ParseMessageFileBytes(data, filepath.Base(path))
		return err
	})
}
