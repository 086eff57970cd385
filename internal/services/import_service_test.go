package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicorp/n0-error-tracker/internal/dto"
	"github.com/clinicorp/n0-error-tracker/internal/models"
	"github.com/clinicorp/n0-error-tracker/internal/services"
)

func TestImportPartialSuccess(t *testing.T) {
	f := newFixture(t)

	rows := []dto.ImportRow{
		{ClientID: "c1", Key: "IMP-1"},
		{Key: "IMP-2"},
		{ClientID: "c3", Key: "IMP-3", Status: "Resolvido", AssignedAgent: "Ana"},
		{ClientID: "", Key: ""},
		{ClientID: "c5", Key: "IMP-5", Origin: "Production", Priority: "High"},
	}
	res, err := f.imports.ImportReports(context.Background(), f.admin, rows)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Success)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, []string{
		"Row 2: clientId and key are required",
		"Row 4: clientId and key are required",
	}, res.Errors)
	assert.EqualValues(t, 3, f.countRows(t, &models.ErrorReport{}, ""))

	var resolved models.ErrorReport
	require.NoError(t, f.db.Where(map[string]interface{}{"key": "IMP-3"}).First(&resolved).Error)
	assert.Equal(t, models.StatusResolvido, resolved.Status)
	assert.NotNil(t, resolved.ResolutionDate)
	require.NotNil(t, resolved.AssignedAgentID)
	assert.Equal(t, f.agent.ID, *resolved.AssignedAgentID)
}

func TestImportReportsDuplicateKeys(t *testing.T) {
	f := newFixture(t)
	f.create(t, "IMP-1", "c1", "")

	res, err := f.imports.ImportReports(context.Background(), f.admin, []dto.ImportRow{
		{ClientID: "c1", Key: "IMP-1"},
		{ClientID: "c2", Key: "IMP-2"},
		{ClientID: "c2", Key: "IMP-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, []string{"Row 1: duplicate key", "Row 3: duplicate key"}, res.Errors)
}

func TestImportRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.imports.ImportReports(context.Background(), f.agent, []dto.ImportRow{{ClientID: "c", Key: "k"}})
	require.ErrorIs(t, err, services.ErrAccessDenied)
	assert.Zero(t, f.countRows(t, &models.ErrorReport{}, ""))
}
