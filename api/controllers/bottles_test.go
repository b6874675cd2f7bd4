package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/cartacocktail/carta-backend/internal/bottles"
	pkgerrors "github.com/cartacocktail/carta-backend/pkg/errors"
)

type stubBottleService struct {
	bottles.Service
	filter  bottles.ListFilter
	deleted uuid.UUID
	err     error
}

func (s *stubBottleService) List(ctx context.Context, filter bottles.ListFilter) ([]bottles.BottleDTO, error) {
	s.filter = filter
	return []bottles.BottleDTO{}, nil
}

func (s *stubBottleService) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = id
	return s.err
}

func TestBottleListParsesFilters(t *testing.T) {
	categoryID := uuid.New()
	stub := &stubBottleService{}

	req := httptest.NewRequest(http.MethodGet, "/api/bottles?categoryId="+categoryID.String()+"&includeEmptied=true", nil)
	rec := serve(BottleList(stub, testLogger()), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if stub.filter.CategoryID == nil || *stub.filter.CategoryID != categoryID {
		t.Fatalf("category filter not passed: %+v", stub.filter)
	}
	if !stub.filter.IncludeEmptied {
		t.Fatalf("includeEmptied not passed")
	}
}

func TestBottleListRejectsBadFilters(t *testing.T) {
	for _, query := range []string{"?categoryId=nope", "?includeEmptied=maybe"} {
		rec := serve(BottleList(&stubBottleService{}, testLogger()), httptest.NewRequest(http.MethodGet, "/api/bottles"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", query, rec.Code)
		}
	}
}

func TestBottleDelete(t *testing.T) {
	id := uuid.New()

	t.Run("invalid id", func(t *testing.T) {
		req := withParam(httptest.NewRequest(http.MethodDelete, "/api/bottles/x", nil), "id", "not-a-uuid")
		rec := serve(BottleDelete(&stubBottleService{}, testLogger()), req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("referenced bottle", func(t *testing.T) {
		stub := &stubBottleService{err: pkgerrors.New(pkgerrors.CodeConflict, "bottle is used by 1 recipe line")}
		req := withParam(httptest.NewRequest(http.MethodDelete, "/api/bottles/"+id.String(), nil), "id", id.String())
		rec := serve(BottleDelete(stub, testLogger()), req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubBottleService{}
		req := withParam(httptest.NewRequest(http.MethodDelete, "/api/bottles/"+id.String(), nil), "id", id.String())
		rec := serve(BottleDelete(stub, testLogger()), req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204 got %d", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("expected empty body, got %s", rec.Body.String())
		}
		if stub.deleted != id {
			t.Fatalf("expected delete of %s got %s", id, stub.deleted)
		}
	})

	t.Run("nil service", func(t *testing.T) {
		req := withParam(httptest.NewRequest(http.MethodDelete, "/api/bottles/"+id.String(), nil), "id", id.String())
		rec := serve(BottleDelete(nil, testLogger()), req)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500 got %d", rec.Code)
		}
	})
}
