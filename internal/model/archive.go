package model

// DeleteResult reports what a policy-routed delete did.
type DeleteResult struct {
	Count    int  `json:"count"`
	Archived bool `json:"archived"`
}

// CountResponse is returned by archive and restore calls.
type CountResponse struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

// InsertResponse lists the identifiers assigned to inserted documents.
type InsertResponse struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

// FindResponse wraps the documents returned by a find call.
type FindResponse struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
}
