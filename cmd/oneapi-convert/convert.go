package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dukex/oneapi/pkg/comfy"
	"github.com/dukex/oneapi/pkg/convert"
	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/schema"
)

func convertFile(ctx context.Context, logger *slog.Logger, engineURL, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}

	client := comfy.NewClient(engineURL, logger)
	converter := convert.NewConverter(schema.NewCatalog(client, nil, logger), logger)

	linear, err := converter.ConvertDocument(ctx, data)
	if err != nil {
		return err
	}

	if out == "" {
		return write(os.Stdout, linear)
	}

	var buf bytes.Buffer
	if err := write(&buf, linear); err != nil {
		return err
	}

	if err := os.WriteFile(out, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	logger.InfoContext(ctx, "Converted workflow", "in", in, "out", out, "nodes", len(linear))

	return nil
}

// write emits linear as indented JSON without HTML escaping.
func write(w io.Writer, linear graph.LinearGraph) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(linear); err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}

	return nil
}
