package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCarriesVerbAndID(t *testing.T) {
	job := NewJob(VerbFind)
	assert.Equal(t, VerbFind, job.Verb)
	assert.NotEmpty(t, job.ID)

	other := NewJob(VerbFind)
	assert.NotEqual(t, job.ID, other.ID)
}

func TestDeleteJobCarriesObjectID(t *testing.T) {
	job := NewDeleteJob("rec-17")
	assert.Equal(t, VerbDelete, job.Verb)
	assert.Equal(t, "rec-17", job.ObjectID)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "relay: boom (status 502)", (&Error{StatusCode: 502, Message: "boom"}).Error())
	assert.Equal(t, "relay: boom", (&Error{Message: "boom"}).Error())
}

func TestMemoryRelayScriptedResponse(t *testing.T) {
	r := NewMemoryRelay()
	r.Respond("countries", []Record{{"id": 1, "label": "A"}})

	records, err := r.Find(context.Background(), Request{
		Job:        NewJob(VerbFind),
		Collection: "countries",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0]["label"])

	reqs := r.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, VerbFind, reqs[0].Job.Verb)
}

func TestMemoryRelayEmitsPushEnvelope(t *testing.T) {
	r := NewMemoryRelay()
	r.Respond("countries", []Record{{"id": 1}})

	var envs []Envelope
	r.Events().On(EventData, func(p any) {
		envs = append(envs, p.(Envelope))
	})

	_, err := r.Find(context.Background(), Request{Job: NewJob(VerbFind), Collection: "countries"})
	require.NoError(t, err)

	require.Len(t, envs, 1)
	assert.Equal(t, "countries", envs[0].Collection)
}

func TestMemoryRelayFailure(t *testing.T) {
	r := NewMemoryRelay()
	r.Fail(errors.New("link down"))

	_, err := r.Find(context.Background(), Request{Job: NewJob(VerbFind), Collection: "x"})
	assert.EqualError(t, err, "link down")
}

func TestHTTPRelayRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/relay/find", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "countries", req.Collection)

		_ = json.NewEncoder(w).Encode(response{
			Records: []Record{{"id": float64(1), "label": "A"}},
		})
	}))
	defer srv.Close()

	r := NewHTTPRelay(HTTPOptions{BaseURL: srv.URL, Token: "tok-1"})

	var pushed []Envelope
	r.Events().On(EventData, func(p any) { pushed = append(pushed, p.(Envelope)) })

	records, err := r.Find(context.Background(), Request{
		Job:        NewJob(VerbFind),
		Collection: "countries",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0]["label"])

	// The inline response is mirrored as a push envelope.
	require.Len(t, pushed, 1)
	assert.Equal(t, records, pushed[0].Records)
}

func TestHTTPRelayErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(response{Error: "upstream unavailable"})
	}))
	defer srv.Close()

	r := NewHTTPRelay(HTTPOptions{BaseURL: srv.URL})
	_, err := r.Find(context.Background(), Request{Job: NewJob(VerbFind), Collection: "x"})

	var relErr *Error
	require.ErrorAs(t, err, &relErr)
	assert.Equal(t, http.StatusBadGateway, relErr.StatusCode)
	assert.Equal(t, "upstream unavailable", relErr.Message)
}

func TestHTTPRelayDeleteUsesJobObjectID(t *testing.T) {
	var seen Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		_ = json.NewEncoder(w).Encode(response{})
	}))
	defer srv.Close()

	r := NewHTTPRelay(HTTPOptions{BaseURL: srv.URL})
	err := r.Delete(context.Background(), Request{
		Job:        NewDeleteJob("rec-9"),
		Collection: "contacts",
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-9", seen.Job.ObjectID)
	assert.Equal(t, VerbDelete, seen.Job.Verb)
}
