package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/models/reports"
)

func ListEscrows(c *gin.Context) {
	var params models.EscrowListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := models.PaginateEscrow(c.Request.Context(), params)
	if err != nil {
		respondFailure(c, err, CodeServerError, "Failed to fetch escrows")
		return
	}
	respondOK(c, http.StatusOK, result)
}

func ExportEscrows(c *gin.Context) {
	var params models.EscrowListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteEscrowExport(c.Request.Context(), &buf, params); err != nil {
		respondFailure(c, err, CodeServerError, "Failed to export escrows")
		return
	}
	filename := reports.EscrowExportFilename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, reports.XlsxContentType, buf.Bytes())
}

func GetEscrow(c *gin.Context) {
	detail, err := models.GetEscrowDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFailure(c, err, CodeServerError, "Failed to fetch escrow")
		return
	}
	respondOK(c, http.StatusOK, detail)
}

const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

type createEscrowResponse struct {
	Id        int    `json:"id"`
	DisplayId string `json:"displayId"`
	Message   string `json:"message"`
}

func CreateEscrow(c *gin.Context) {
	var input models.NewEscrow
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, err)
		return
	}
	escrow, replayed, err := models.CreateEscrowIdempotent(c.Request.Context(), c.GetHeader(IdempotencyKeyHeader), &input)
	if err != nil {
		respondFailure(c, err, CodeCreateError, "Failed to create escrow")
		return
	}
	status := http.StatusCreated
	if replayed {
		c.Header(IdempotentReplayedHeader, "true")
		status = http.StatusOK
	}
	respondOK(c, status, createEscrowResponse{
		Id:        escrow.NumericId,
		DisplayId: escrow.DisplayId,
		Message:   "Escrow created successfully",
	})
}

func GetChecklist(c *gin.Context) {
	checklist, err := models.GetChecklist(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFailure(c, err, CodeServerError, "Failed to fetch checklist")
		return
	}
	respondOK(c, http.StatusOK, checklist)
}

type updateChecklistRequest struct {
	Item  string  `json:"item"`
	Value *bool   `json:"value"`
	Note  *string `json:"note"`
}

func UpdateChecklist(c *gin.Context) {
	var req updateChecklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	fields := map[string]string{}
	req.Item = strings.TrimSpace(req.Item)
	if req.Item == "" {
		fields["item"] = "is required"
	}
	if req.Value == nil {
		fields["value"] = "is required"
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	checklist, err := models.UpdateChecklist(c.Request.Context(), c.Param("id"), req.Item, *req.Value, req.Note)
	if err != nil {
		respondFailure(c, err, CodeServerError, "Failed to update checklist")
		return
	}
	respondOK(c, http.StatusOK, checklist)
}

func AddEscrowPerson(c *gin.Context) {
	var input models.NewEscrowPerson
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, err)
		return
	}
	person, err := models.AddEscrowPerson(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondFailure(c, err, CodeServerError, "Failed to add participant")
		return
	}
	respondOK(c, http.StatusCreated, person)
}
