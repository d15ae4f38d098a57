package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"apply-desk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Tree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"serve"},
		{"submit"},
		{"admin", "show"},
		{"admin", "title"},
		{"admin", "emails"},
		{"admin", "phones"},
		{"admin", "sync"},
		{"ledger", "list"},
		{"attempts"},
		{"migrate"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestSubmitCmd_Flags(t *testing.T) {
	cmd := newSubmitCmd(&cli{})
	require.NoError(t, cmd.ParseFlags([]string{
		"--name", "홍길동",
		"--phone", "010-1234-5678",
		"--work-type", "C",
		"--start-date", "2025-03-10",
		"--privacy",
	}))

	for name, want := range map[string]string{
		"name":       "홍길동",
		"phone":      "010-1234-5678",
		"work-type":  "C",
		"start-date": "2025-03-10",
		"privacy":    "true",
		"process-id": defaultProcessID,
	} {
		assert.Equal(t, want, cmd.Flags().Lookup(name).Value.String(), name)
	}
}

func TestAdminSync_RejectsUnknownDirection(t *testing.T) {
	cmd := newAdminSyncCmd(&cli{})
	assert.Error(t, cmd.Args(cmd, []string{"both"}))
	assert.NoError(t, cmd.Args(cmd, []string{"pull"}))
}

func TestSplitEntries(t *testing.T) {
	assert.Equal(t,
		[]string{"a@x.kr", " b@x.kr", "c@x.kr"},
		splitEntries([]string{"a@x.kr, b@x.kr", "c@x.kr"}),
	)
}

func TestDraftVariables(t *testing.T) {
	vars := draftVariables(models.ApplicationDraft{Name: "n", Phone: "p", Privacy: true})
	assert.Equal(t, "n", vars["name"])
	assert.Equal(t, true, vars["privacy"])
	assert.Equal(t, "", vars["startDate"])
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"sent": 2}))
	assert.JSONEq(t, `{"sent":2}`, buf.String())
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 503, map[string]string{"postgres": "down"})

	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"postgres":"down"}`, rec.Body.String())
}
