package notes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/polmed/mobiclinic/internal/platform/auth"
	"github.com/polmed/mobiclinic/internal/workflow"
)

func withRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, auth.UserRoleKey, role)
			ctx = context.WithValue(ctx, auth.UserNameKey, "Test User")
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func postNote(t *testing.T, role, noteType string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	api := e.Group("/api", withRole(role))
	NewHandler(NewService(newMockRepo())).RegisterRoutes(api)

	body := `{"note_type":"` + noteType + `","content":"stage artifact"}`
	req := httptest.NewRequest(http.MethodPost, "/api/visits/"+uuid.NewString()+"/notes", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// Every stage completed by posting a note must have its owning role admitted
// by the write gate, or that stage can never be finished.
func TestStageOwnersPassWriteGate(t *testing.T) {
	cases := []struct {
		stage    workflow.Stage
		noteType string
	}{
		{workflow.StageDoctor, TypeDiagnosis},
		{workflow.StageCounseling, TypeCounseling},
		{workflow.StageClosure, TypeClosure},
	}
	for _, tc := range cases {
		role := string(workflow.OwningRole(tc.stage))
		rec := postNote(t, role, tc.noteType)
		if rec.Code != http.StatusCreated {
			t.Errorf("[%s] owning role %s got %d, want 201: %s", tc.stage, role, rec.Code, rec.Body.String())
		}
	}
}

func TestClerkBlockedFromNoteWrites(t *testing.T) {
	rec := postNote(t, auth.RoleClerk, TypeGeneral)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("clerk got %d, want 403", rec.Code)
	}
}
