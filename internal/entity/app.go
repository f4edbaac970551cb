package entity

import "encoding/json"

// Metadata keys recognized in a bundle's raw metadata file. Everything the
// normalizer consumes is addressed through these.
const (
	MetaAppID            = "appId"
	MetaPackageID        = "packageId"
	MetaName             = "name"
	MetaShortDescription = "shortDescription"
	MetaDescription      = "description"
	MetaCategories       = "categories"
	MetaAuthor           = "author"
	MetaUpstreamAuthor   = "upstreamAuthor"
	MetaWebLink          = "webLink"
	MetaCodeLink         = "codeLink"
	MetaVersion          = "version"
	MetaVersionNumber    = "versionNumber"
	MetaIsOpenSource     = "isOpenSource"
	MetaScreenshots      = "screenshots"
	MetaCreatedAt        = "createdAt"
)

const (
	authorKeyName            = "name"
	authorKeyGithubUsername  = "githubUsername"
	authorKeyKeybaseUsername = "keybaseUsername"
	authorKeyTwitterUsername = "twitterUsername"
	authorKeyPicture         = "picture"
)

// AppRecord is the canonical form of one published application, safe for
// direct serialization into the catalog. Field order here is the field order
// in the catalog file.
type AppRecord struct {
	AppID            string       `json:"appId"`
	PackageID        string       `json:"packageId"`
	Name             string       `json:"name"`
	ShortDescription string       `json:"shortDescription"`
	Description      string       `json:"description"`
	Categories       []string     `json:"categories"`
	Author           Author       `json:"author"`
	UpstreamAuthor   string       `json:"upstreamAuthor"`
	WebLink          string       `json:"webLink"`
	CodeLink         string       `json:"codeLink"`
	Version          string       `json:"version"`
	VersionNumber    int64        `json:"versionNumber"`
	IsOpenSource     bool         `json:"isOpenSource"`
	ImageID          string       `json:"imageId"`
	PackageURL       string       `json:"packageUrl,omitempty"`
	Screenshots      []Screenshot `json:"screenshots"`
	CreatedAt        int64        `json:"createdAt"`
}

type Screenshot struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Author identifies who published an app. Source metadata may carry author
// keys beyond the known set; they are kept in Extra and survive
// serialization.
type Author struct {
	Name            string
	GithubUsername  string
	KeybaseUsername string
	TwitterUsername string
	Picture         string
	Extra           map[string]any
}

// AuthorFromMap builds an Author from loosely typed metadata. Known fields
// must be strings to count; anything else lands in Extra untouched.
func AuthorFromMap(m map[string]any) Author {
	author := Author{}
	for key, value := range m {
		str, _ := value.(string)

		switch key {
		case authorKeyName:
			author.Name = str
		case authorKeyGithubUsername:
			author.GithubUsername = str
		case authorKeyKeybaseUsername:
			author.KeybaseUsername = str
		case authorKeyTwitterUsername:
			author.TwitterUsername = str
		case authorKeyPicture:
			author.Picture = str
		default:
			if author.Extra == nil {
				author.Extra = make(map[string]any)
			}
			author.Extra[key] = value
		}
	}

	return author
}

// MarshalJSON always emits the five known fields, empty or not, plus every
// extra key. Map marshaling sorts keys, which keeps the catalog diff-clean.
func (a Author) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(a.Extra)+5)
	for key, value := range a.Extra {
		m[key] = value
	}

	m[authorKeyName] = a.Name
	m[authorKeyGithubUsername] = a.GithubUsername
	m[authorKeyKeybaseUsername] = a.KeybaseUsername
	m[authorKeyTwitterUsername] = a.TwitterUsername
	m[authorKeyPicture] = a.Picture

	return json.Marshal(m)
}

func (a *Author) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	*a = AuthorFromMap(m)

	return nil
}
