package domain

// CatalogCandidate is one search result returned by the catalog provider.
// Candidates are immutable once returned; the broker only ever indexes into
// the ordered list it stored when the choices were presented.
type CatalogCandidate struct {
	Identifier   string  `json:"identifier"`
	Title        string  `json:"title"`
	RatingScore  float64 `json:"rating_score,omitempty"`
	InstallCount string  `json:"install_count,omitempty"`
	SizeHint     string  `json:"size_hint,omitempty"`
	IconURL      string  `json:"icon_url,omitempty"`
}

// AppDetails is the extended metadata fetched for a single candidate before
// the download starts.
type AppDetails struct {
	CatalogCandidate

	Developer string `json:"developer,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Version   string `json:"version,omitempty"`
	Genre     string `json:"genre,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Free      bool   `json:"free"`
	Price     string `json:"price,omitempty"`
}
