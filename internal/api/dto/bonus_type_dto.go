package dto

// BonusTypeResponse is a catalog entry.
type BonusTypeResponse struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

// BonusTypeRequest is the management payload for create and update.
type BonusTypeRequest struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   *int   `json:"sort_order"`
}
