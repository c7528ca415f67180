package server

import (
	"fmt"
	"os"
	"path/filepath"

	"api/graph/resolvers"
	"api/utils"

	"github.com/vektah/gqlparser/v2/formatter"
	"go.uber.org/zap"
)

// ExportSchema writes the served GraphQL schema to schema.graphql in dir
func ExportSchema(dir string) error {
	schemaPath := filepath.Join(dir, "schema.graphql")

	file, err := os.Create(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to create schema file: %w", err)
	}
	defer file.Close()

	formatter.NewFormatter(file).FormatSchema(resolvers.NewSchema(nil).Schema())

	utils.Logger.Info("Schema generated to file", zap.String("path", schemaPath))
	return nil
}
