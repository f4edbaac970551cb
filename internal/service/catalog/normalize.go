package catalog

import (
	"strconv"
	"strings"

	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
)

// Normalize maps a validated bundle onto the canonical record. It is a pure
// function of the bundle contents, so rerunning it on unchanged input yields
// a byte-identical serialization.
func Normalize(bundle *entity.Bundle, cfg *config.AssetsConfig) entity.AppRecord {
	meta := bundle.Meta

	rec := entity.AppRecord{
		AppID:            metaString(meta, entity.MetaAppID),
		PackageID:        metaString(meta, entity.MetaPackageID),
		Name:             metaString(meta, entity.MetaName),
		ShortDescription: metaString(meta, entity.MetaShortDescription),
		Description:      metaString(meta, entity.MetaDescription),
		Categories:       metaStringSlice(meta, entity.MetaCategories),
		Author:           entity.AuthorFromMap(authorMap(meta)),
		UpstreamAuthor:   metaString(meta, entity.MetaUpstreamAuthor),
		WebLink:          metaString(meta, entity.MetaWebLink),
		CodeLink:         metaString(meta, entity.MetaCodeLink),
		Version:          metaString(meta, entity.MetaVersion),
		VersionNumber:    metaInt(meta, entity.MetaVersionNumber),
		IsOpenSource:     metaBool(meta, entity.MetaIsOpenSource),
		CreatedAt:        metaInt(meta, entity.MetaCreatedAt),
	}

	// The image id is the content address of the preferred icon, so it only
	// changes when the icon bytes change.
	if len(bundle.Icons) > 0 {
		icon := bundle.Icons[0]
		rec.ImageID = icon.SHA256 + icon.Ext
	}

	// Oversized artifacts are not collected into the static tree; the record
	// points at the external large-object host instead.
	if bundle.Package != nil && bundle.Package.Size > cfg.RedirectThreshold {
		rec.PackageURL = strings.TrimRight(cfg.ExternalBaseURL, "/") + "/" + rec.PackageID
	}

	if strings.TrimSpace(rec.Description) == "" {
		rec.Description = strings.TrimSpace(string(bundle.Description))
	}

	rec.Screenshots = normalizeScreenshots(bundle)

	return rec
}

// normalizeScreenshots prefers the authored screenshot list and falls back to
// the files discovered on disk, already name-sorted by the adapter.
func normalizeScreenshots(bundle *entity.Bundle) []entity.Screenshot {
	raw, present := bundle.Meta[entity.MetaScreenshots]
	if !present {
		shots := make([]entity.Screenshot, 0, len(bundle.ScreenshotFiles))
		for _, name := range bundle.ScreenshotFiles {
			shots = append(shots, entity.Screenshot{URL: name})
		}

		return shots
	}

	items, ok := raw.([]any)
	if !ok {
		return []entity.Screenshot{}
	}

	shots := make([]entity.Screenshot, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			shots = append(shots, entity.Screenshot{URL: v})
		case map[string]any:
			shots = append(shots, entity.Screenshot{
				URL:     asString(v["url"]),
				Caption: asString(v["caption"]),
			})
		}
	}

	return shots
}

// asString renders loose metadata scalars the way the catalog serializes
// them: strings pass through, integral numbers drop the json float form,
// everything else comes back empty.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}

		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func metaString(meta map[string]any, key string) string {
	return asString(meta[key])
}

func metaInt(meta map[string]any, key string) int64 {
	switch t := meta[key].(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	default:
		return 0
	}
}

func metaBool(meta map[string]any, key string) bool {
	v, _ := meta[key].(bool)

	return v
}

func metaStringSlice(meta map[string]any, key string) []string {
	items, ok := meta[key].([]any)
	if !ok {
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, asString(item))
	}

	return out
}

func authorMap(meta map[string]any) map[string]any {
	m, _ := meta[entity.MetaAuthor].(map[string]any)

	return m
}
