package remote

import "machine-service-backend/internal/model"

// MaxPageSize is the largest page the raw store listing serves; larger
// requests are clamped and the reply reports the size actually used.
const MaxPageSize = 1000

// PageResponse models one page of the raw store listing served under
// /api/store/machines. A non-zero Code is an application error.
type PageResponse struct {
	Code int      `json:"code"`
	Data PageData `json:"data"`
}

// PageData is the payload of a PageResponse.
type PageData struct {
	Page     int                     `json:"page"`
	PageSize int                     `json:"pageSize"`
	Total    int                     `json:"total"`
	Items    []*model.MachineJourney `json:"items"`
}

type errorBody struct {
	Error string `json:"error"`
}

type operatorRequest struct {
	Name string `json:"name"`
	EPF  string `json:"epf"`
}
