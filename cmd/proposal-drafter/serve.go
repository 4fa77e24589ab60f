// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/proposal-drafter/internal/library"
	"github.com/pdiddy/proposal-drafter/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the drafting workflow over HTTP",
	Long: `Serve starts the HTTP surface. The backend is built and probed before the
listener opens; a backend that cannot start ends the process.

  GET  /healthz
  POST /v1/drafts    multipart form: "decks" (one or more .pptx), "brief"
  POST /v1/exports   JSON {"draft": "...", "format": "docx"|"txt"}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	keywords, _ := cmd.Flags().GetStringSlice("keyword")
	useLibrary, _ := cmd.Flags().GetBool("library")

	var lib *library.Store
	if useLibrary {
		if lib, err = library.Open(cfg.Library); err != nil {
			return err
		}
		defer lib.Close()
	}

	p, err := newPipeline(ctx, cfg, keywords, lib)
	if err != nil {
		return err
	}
	return server.New(p, cfg.Server, log).ListenAndServe(ctx)
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Int64("max-upload-bytes", 32<<20, "maximum request body size")
	serveCmd.Flags().StringSlice("allow-origin", nil, "browser origin allowed to call the API (repeatable)")
	serveCmd.Flags().StringSlice("keyword", nil, "relevance keywords, case-sensitive (default Objective,Solution)")
	serveCmd.Flags().Bool("library", false, "prepend exemplars stored in the library")

	rootCmd.AddCommand(serveCmd)
}
