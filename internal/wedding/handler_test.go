package wedding

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowly/internal/activity"
	"vowly/pkg/testutil"
)

func newTestRouter(t *testing.T) (chi.Router, *recordingMilestones, *Service) {
	t.Helper()
	svc, _, rec := newTestService(t)
	h := NewHandler(svc, nil)
	r := chi.NewRouter()
	h.RegisterOwner(r)
	h.RegisterGuest(r)
	return r, rec, svc
}

func TestHandlePublish(t *testing.T) {
	r, rec, svc := newTestRouter(t)
	w := &Wedding{Slug: "ana-ben", Title: "Ana & Ben"}
	require.NoError(t, svc.db.Create(w).Error)
	path := "/weddings/" + w.ActivityID() + "/publish"

	t.Run("publishes once", func(t *testing.T) {
		rr := testutil.Serve(r, testutil.NewJSONRequest(t, http.MethodPost, path, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		body := testutil.DecodeJSON[map[string]any](t, rr)
		assert.Equal(t, true, body["is_published"])
		assert.Equal(t, "ana-ben", body["slug"])
		require.Len(t, rec.got, 1)
		assert.Equal(t, activity.EventPublished, rec.got[0].event)
	})

	t.Run("second publish conflicts", func(t *testing.T) {
		rr := testutil.Serve(r, testutil.NewJSONRequest(t, http.MethodPost, path, nil))
		testutil.AssertError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("bad id", func(t *testing.T) {
		rr := testutil.Serve(r, testutil.NewJSONRequest(t, http.MethodPost, "/weddings/abc/publish", nil))
		testutil.AssertError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestHandleRSVP(t *testing.T) {
	r, rec, svc := newTestRouter(t)
	g := &Guest{WeddingID: 9, Name: "Dodi"}
	require.NoError(t, svc.db.Create(g).Error)
	path := "/guests/" + g.ActivityID() + "/rsvp"

	rr := testutil.Serve(r, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]string{"rsvp": "maybe"}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, rec.got, 1)
	assert.Equal(t, "maybe", rec.got[0].extra["rsvp"])

	rr = testutil.Serve(r, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]string{"rsvp": "later"}))
	testutil.AssertError(t, rr, http.StatusBadRequest, "bad_request")

	rr = testutil.Serve(r, testutil.NewJSONRequest(t, http.MethodPost, "/guests/404/rsvp", map[string]string{"rsvp": "yes"}))
	testutil.AssertError(t, rr, http.StatusNotFound, "not_found")
	assert.Len(t, rec.got, 1)
}
