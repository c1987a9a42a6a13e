package models

// TaskType describes one entry of the static recording-task catalog.
type TaskType struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	RequiresPartner bool   `json:"requires_partner"`
	Instructions    string `json:"instructions"`
}
