package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmhafiz/reconcile/internal/rates"
)

func TestReconcileHandlerExactMatch(t *testing.T) {
	h := NewReconcileHandler(validator.New(), rates.NewStaticProvider(nil))

	body := map[string]any{
		"document": map[string]any{
			"version": "v1.0.0",
			"mappings": []map[string]any{
				{"id": "m1", "source": []string{"Amount"}, "target": "Value", "kind": "exact"},
			},
			"sortConfiguration": map[string]any{
				"sourceSortKey": "Amount",
				"targetSortKey": "Value",
				"matchStrategy": "exact",
			},
		},
		"source": []map[string]any{{"Amount": 1500.0}},
		"target": []map[string]any{{"Value": 1500.0}},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", bytes.NewReader(raw))
	rec := httptest.NewRecorder()

	h.Reconcile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "matched", string(resp.Results[0].Status))
	assert.NotEmpty(t, resp.Results[0].ID)
}

func TestReconcileHandlerAppliesDocumentTransformations(t *testing.T) {
	h := NewReconcileHandler(validator.New(), rates.NewStaticProvider(nil))

	body := map[string]any{
		"document": map[string]any{
			"version": "v1.0.0",
			"mappings": []map[string]any{
				{"id": "m1", "source": []string{"Name"}, "target": "Name", "kind": "exact"},
			},
			"transformations": map[string]any{
				"source": []map[string]any{
					{"id": "t1", "columnId": "Name", "kind": "trim", "order": 1},
				},
			},
			"sortConfiguration": map[string]any{
				"sourceSortKey": "Name",
				"targetSortKey": "Name",
				"matchStrategy": "exact",
			},
		},
		"source": []map[string]any{{"Name": "  Acme  "}},
		"target": []map[string]any{{"Name": "Acme"}},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", bytes.NewReader(raw))
	rec := httptest.NewRecorder()

	h.Reconcile(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReconcileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "matched", string(resp.Results[0].Status))
}

func TestReconcileHandlerRejectsInvalidDocument(t *testing.T) {
	h := NewReconcileHandler(validator.New(), rates.NewStaticProvider(nil))

	body := map[string]any{
		"document": map[string]any{"version": "not-semver"},
		"source":   []map[string]any{},
		"target":   []map[string]any{},
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", bytes.NewReader(raw))
	rec := httptest.NewRecorder()

	h.Reconcile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
