package catalog

import (
	"fmt"
	"strings"

	"github.com/storegen/storegen/internal/entity"
)

// requiredFields is the schema every bundle's metadata must satisfy. A field
// typed as a string must also be non-empty after trimming, except the ones
// listed in allowEmpty. The author object is checked separately.
var requiredFields = []string{
	entity.MetaAppID,
	entity.MetaName,
	entity.MetaVersion,
	entity.MetaVersionNumber,
	entity.MetaPackageID,
	entity.MetaShortDescription,
	entity.MetaCategories,
	entity.MetaIsOpenSource,
	entity.MetaWebLink,
	entity.MetaCodeLink,
	entity.MetaUpstreamAuthor,
	entity.MetaCreatedAt,
}

// Closed-source apps legitimately ship without a repository link.
var allowEmpty = map[string]struct{}{
	entity.MetaCodeLink: {},
}

// Validate checks one bundle against the catalog schema and reports every
// problem found, not just the first. An empty error slice marks the bundle
// fit for normalization. The warnings do not block publication.
func Validate(bundle *entity.Bundle) ([]entity.ValidationError, []string) {
	if bundle.MetaErr != nil {
		return []entity.ValidationError{{Field: "metadata", Reason: bundle.MetaErr.Error()}}, nil
	}

	var errs []entity.ValidationError
	for _, field := range requiredFields {
		value, present := bundle.Meta[field]
		if !present {
			errs = append(errs, entity.ValidationError{Field: field, Reason: "required field missing"})

			continue
		}

		str, isString := value.(string)
		if !isString {
			continue
		}
		if _, ok := allowEmpty[field]; ok {
			continue
		}
		if strings.TrimSpace(str) == "" {
			errs = append(errs, entity.ValidationError{Field: field, Reason: "must not be empty"})
		}
	}

	errs = append(errs, validateAuthor(bundle.Meta)...)

	if len(bundle.Icons) == 0 {
		errs = append(errs, entity.ValidationError{Field: "icon", Reason: "no icon file found"})
	}

	var warns []string
	if id, ok := bundle.Meta[entity.MetaPackageID].(string); ok && strings.TrimSpace(id) != "" && bundle.Package == nil {
		warns = append(warns, fmt.Sprintf("package artifact %s missing, publishing metadata-only listing", id))
	}

	return errs, warns
}

func validateAuthor(meta map[string]any) []entity.ValidationError {
	value, present := meta[entity.MetaAuthor]
	if !present {
		return []entity.ValidationError{{Field: entity.MetaAuthor, Reason: "required field missing"}}
	}

	m, ok := value.(map[string]any)
	if !ok {
		return []entity.ValidationError{{Field: entity.MetaAuthor, Reason: "must be an object"}}
	}

	name, _ := m["name"].(string)
	if strings.TrimSpace(name) == "" {
		return []entity.ValidationError{{Field: "author.name", Reason: "must not be empty"}}
	}

	return nil
}
