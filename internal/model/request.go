package model

type InsertRequest struct {
	Documents []Document `json:"documents"`
}

type SelectorRequest struct {
	Selector Selector `json:"selector"`
}

type DeleteRequest struct {
	Selector  Selector `json:"selector"`
	Permanent bool     `json:"permanent"`
}
