package service

import (
	"fmt"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/pkg/zip"
)

// ArchiveEntries converts generated assets into zip entries. Inline images are
// stored as-is; upstream-hosted images become a text file carrying the URL.
func ArchiveEntries(assets []domain.GeneratedAsset) []zip.Asset {
	files := make([]zip.Asset, 0, len(assets))
	for i, asset := range assets {
		name := fmt.Sprintf("creative-%d", i+1)
		if len(asset.Data) == 0 {
			files = append(files, zip.Asset{Filename: name + "-url", MIME: "text/plain", Data: []byte(asset.URL + "\n")})
			continue
		}
		mime := "image/png"
		if asset.Format == domain.AssetFormatJPEG {
			mime = "image/jpeg"
		}
		files = append(files, zip.Asset{Filename: name, MIME: mime, Data: asset.Data})
	}
	return files
}
