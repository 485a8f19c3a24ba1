package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"bindery/internal/queue"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type itemJSON struct {
	ID          int64     `json:"id"`
	File        string    `json:"file"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	Result      string    `json:"result,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	SavedTo     string    `json:"saved_to,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toItemJSON(item *queue.Item, savedTo string) itemJSON {
	return itemJSON{
		ID:          item.ID,
		File:        item.DisplayName,
		Source:      item.SourcePath,
		Status:      string(item.Status),
		Result:      item.ResultFilename,
		DownloadURL: item.DownloadURL,
		Error:       item.ErrorMessage,
		SavedTo:     savedTo,
		UpdatedAt:   item.UpdatedAt,
	}
}
