package handler

import (
	"time"

	"hiretrack/internal/hire/models"
)

type assignmentResponse struct {
	Handle string `json:"handle"`
	UserID int64  `json:"user_id,omitempty"`
}

type hireResponse struct {
	Code      string   `json:"code"`
	FullName  string   `json:"full_name"`
	Role      string   `json:"role"`
	StartDate string   `json:"start_date"`
	DocsEmail string   `json:"docs_email"`
	Checklist []string `json:"checklist,omitempty"`
	Notes     string   `json:"notes,omitempty"`

	Leader assignmentResponse `json:"leader"`
	Legal  assignmentResponse `json:"legal"`
	DevOps assignmentResponse `json:"devops"`

	OverallStatus string `json:"overall_status"`
	LeaderStatus  string `json:"leader_status"`
	LegalStatus   string `json:"legal_status"`
	DevOpsStatus  string `json:"devops_status"`

	LegalReminded  bool `json:"legal_reminded"`
	DevOpsReminded bool `json:"devops_reminded"`
	Escalated      bool `json:"escalated"`

	CreatorID int64 `json:"creator_id"`
	ChatID    int64 `json:"chat_id,omitempty"`
	MessageID int64 `json:"message_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type changedResponse struct {
	Changed bool         `json:"changed"`
	Hire    hireResponse `json:"hire"`
}

type historyResponse struct {
	ID          string    `json:"id"`
	HireCode    string    `json:"hire_code"`
	ActorID     int64     `json:"actor_id"`
	ActorHandle string    `json:"actor_handle"`
	Action      string    `json:"action"`
	Details     string    `json:"details,omitempty"`
	At          time.Time `json:"at"`
}

func toHireResponse(h *models.Hire) hireResponse {
	return hireResponse{
		Code:           h.Code,
		FullName:       h.FullName,
		Role:           h.Role,
		StartDate:      h.StartDate.Format("2006-01-02"),
		DocsEmail:      h.DocsEmail,
		Checklist:      h.Checklist,
		Notes:          h.Notes,
		Leader:         assignmentResponse{Handle: h.Leader.Handle, UserID: h.Leader.UserID},
		Legal:          assignmentResponse{Handle: h.Legal.Handle, UserID: h.Legal.UserID},
		DevOps:         assignmentResponse{Handle: h.DevOps.Handle, UserID: h.DevOps.UserID},
		OverallStatus:  string(h.Overall),
		LeaderStatus:   string(h.LeaderStatus),
		LegalStatus:    string(h.LegalStatus),
		DevOpsStatus:   string(h.DevOpsStatus),
		LegalReminded:  h.LegalReminded,
		DevOpsReminded: h.DevOpsReminded,
		Escalated:      h.Escalated,
		CreatorID:      h.CreatorID,
		ChatID:         h.ChatID,
		MessageID:      h.MessageID,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
	}
}

func toHistoryResponse(e models.HistoryEntry) historyResponse {
	return historyResponse{
		ID:          e.ID.String(),
		HireCode:    e.HireCode,
		ActorID:     e.ActorID,
		ActorHandle: e.ActorHandle,
		Action:      e.Action,
		Details:     e.Details,
		At:          e.At,
	}
}
