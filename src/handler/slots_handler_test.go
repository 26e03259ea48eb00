package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"firecontrol/src/model"
	"firecontrol/src/slots"
)

type mockLeaseViewer struct {
	state slots.LeaseState
	err   error
}

func (m *mockLeaseViewer) GetLeaseState(ctx context.Context, userID uint) (slots.LeaseState, error) {
	return m.state, m.err
}

type mockLeaseReleaser struct {
	released     bool
	err          error
	closeCalls   int
	forceCalls   int
	lastOperator string
}

func (m *mockLeaseReleaser) ReleaseOnClose(ctx context.Context, userID uint, missionID string) (bool, error) {
	m.closeCalls++
	return m.released, m.err
}

func (m *mockLeaseReleaser) ForceRelease(ctx context.Context, userID uint, missionID string, operator string) (bool, error) {
	m.forceCalls++
	m.lastOperator = operator
	return m.released, m.err
}

type mockOperatorFinder struct {
	operator *model.User
	lookedUp string
}

func (m *mockOperatorFinder) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	m.lookedUp = username
	if m.operator != nil && m.operator.Username == username {
		return m.operator, nil
	}
	return nil, nil
}

type mockMirrorFinder struct {
	mirror *model.ExecutionMirror
}

func (m *mockMirrorFinder) FindByMission(ctx context.Context, missionID string) (*model.ExecutionMirror, error) {
	if m.mirror != nil && m.mirror.MissionID == missionID {
		return m.mirror, nil
	}
	return nil, nil
}

func newRouter(viewer leaseViewer, releaser leaseReleaser, operators operatorFinder) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/users/{userID}/slots", LeaseStateHandler(viewer))
	r.Post("/users/{userID}/missions/{missionID}/close", CloseLeaseHandler(releaser))
	r.Post("/users/{userID}/missions/{missionID}/release", ForceReleaseHandler(releaser, operators))
	return r
}

func TestLeaseStateHandler(t *testing.T) {
	viewer := &mockLeaseViewer{state: slots.LeaseState{
		States: []model.UserSlotState{
			{UserID: 7, Mode: model.LeaseModeManual, Tier: "operator", MaxSlots: 3, SlotsInUse: 1},
		},
		OpenLeases: []model.SlotLease{
			{UserID: 7, MissionID: "m-1", Mode: model.LeaseModeManual, Symbol: "EURUSD", State: model.LeaseStateOpen},
		},
	}}
	router := newRouter(viewer, &mockLeaseReleaser{}, &mockOperatorFinder{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/7/slots", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"mission_id":"m-1"`)
	assert.Contains(t, rr.Body.String(), `"slots_in_use":1`)
}

func TestLeaseStateHandlerRejectsBadUserID(t *testing.T) {
	router := newRouter(&mockLeaseViewer{}, &mockLeaseReleaser{}, &mockOperatorFinder{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/zero/slots", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCloseLeaseHandler(t *testing.T) {
	releaser := &mockLeaseReleaser{released: true}
	router := newRouter(&mockLeaseViewer{}, releaser, &mockOperatorFinder{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/7/missions/m-1/close", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, releaser.closeCalls)
	assert.Contains(t, rr.Body.String(), `"released":true`)
}

func TestForceReleaseHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ops-token"), bcrypt.MinCost)
	assert.NoError(t, err)

	operators := &mockOperatorFinder{operator: &model.User{
		ID:                99,
		Username:          "ops-jane",
		OperatorTokenHash: string(hash),
	}}

	t.Run("valid token releases", func(t *testing.T) {
		releaser := &mockLeaseReleaser{released: true}
		router := newRouter(&mockLeaseViewer{}, releaser, operators)

		rr := httptest.NewRecorder()
		body := `{"operator":"ops-jane","token":"ops-token"}`
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/7/missions/m-1/release", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, releaser.forceCalls)
		assert.Equal(t, "ops-jane", releaser.lastOperator)
		assert.Equal(t, "ops-jane", operators.lookedUp)
	})

	t.Run("wrong token is unauthorized", func(t *testing.T) {
		releaser := &mockLeaseReleaser{released: true}
		router := newRouter(&mockLeaseViewer{}, releaser, operators)

		rr := httptest.NewRecorder()
		body := `{"operator":"ops-jane","token":"wrong"}`
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/7/missions/m-1/release", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, 0, releaser.forceCalls)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		releaser := &mockLeaseReleaser{}
		router := newRouter(&mockLeaseViewer{}, releaser, operators)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/7/missions/m-1/release", strings.NewReader(`{"operator":"ops-jane"}`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown operator account is unauthorized", func(t *testing.T) {
		releaser := &mockLeaseReleaser{}
		router := newRouter(&mockLeaseViewer{}, releaser, operators)

		rr := httptest.NewRecorder()
		body := `{"operator":"ops-nobody","token":"ops-token"}`
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/7/missions/m-1/release", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, 0, releaser.forceCalls)
	})

	t.Run("operator without token hash is unauthorized", func(t *testing.T) {
		releaser := &mockLeaseReleaser{}
		bare := &mockOperatorFinder{operator: &model.User{ID: 99, Username: "ops-jane"}}
		router := newRouter(&mockLeaseViewer{}, releaser, bare)

		rr := httptest.NewRecorder()
		body := `{"operator":"ops-jane","token":"ops-token"}`
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/users/7/missions/m-1/release", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestMirrorHandler(t *testing.T) {
	mirrors := &mockMirrorFinder{mirror: &model.ExecutionMirror{
		MissionID: "m-1",
		UserID:    7,
		Marker:    model.MirrorReclaimedOrphan,
		Detail:    "no status record after grace",
	}}

	r := chi.NewRouter()
	r.Get("/users/{userID}/missions/{missionID}/mirror", MirrorHandler(mirrors))

	t.Run("returns the mirror row", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/7/missions/m-1/mirror", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"marker":"reclaimed_orphan"`)
	})

	t.Run("unknown mission is not found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/7/missions/m-none/mirror", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("mission of another user is not found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/8/missions/m-1/mirror", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
