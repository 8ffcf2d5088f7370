package dtos

type ApplicationCreateRequest struct {
	Company  string `json:"company"`
	Role     string `json:"role"`
	Priority string `json:"priority"` // defaults to "medium" if empty
}

// ApplicationPatchRequest updates non-stage fields only. Pointers
// distinguish "leave unchanged" from "set". Stage is deliberately
// absent: moves go through the reconciler so they get audited.
type ApplicationPatchRequest struct {
	Company  *string `json:"company"`
	Role     *string `json:"role"`
	Priority *string `json:"priority"`
}

type MoveRequest struct {
	ToStage string `json:"to_stage" binding:"required"`
}

type NoteCreateRequest struct {
	Content  string `json:"content" binding:"required"`
	NoteType string `json:"note_type"`
}
