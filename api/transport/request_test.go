package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/questlog/domain"
)

func TestUpdateUserRequestDecoding(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantErr       bool
		wantTasks     bool
		wantCompleted bool
		wantXP        int
	}{
		{name: "full", body: `{"xp":10,"tasks_completed":1,"tasks":[],"completed_tasks":[{"id":"a"}],"version":3}`, wantTasks: true, wantCompleted: true},
		{name: "collections omitted", body: `{"xp":10,"tasks_completed":1}`},
		{name: "null collections", body: `{"xp":10,"tasks_completed":1,"tasks":null,"completed_tasks":null}`},
		{name: "xp missing", body: `{"tasks_completed":1}`, wantErr: true},
		{name: "tasks_completed missing", body: `{"xp":1}`, wantErr: true},
		{name: "xp at ceiling", body: `{"xp":1000000000,"tasks_completed":1}`, wantXP: 1000000000},
		{name: "xp above ceiling", body: `{"xp":1000000001,"tasks_completed":1}`, wantErr: true},
		{name: "xp beyond int64", body: `{"xp":1e300,"tasks_completed":1}`, wantErr: true},
		{name: "fractional xp", body: `{"xp":10.5,"tasks_completed":1}`, wantErr: true},
		{name: "negative xp", body: `{"xp":-1,"tasks_completed":1}`, wantErr: true},
		{name: "negative tasks_completed", body: `{"xp":10,"tasks_completed":-2}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateUserRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			err := req.Validate()
			if tt.wantErr {
				assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
				return
			}
			require.NoError(t, err)
			update := req.ToUpdate()
			wantXP := tt.wantXP
			if wantXP == 0 {
				wantXP = 10
			}
			assert.Equal(t, wantXP, update.XP)
			assert.Equal(t, tt.wantTasks, update.Tasks != nil)
			assert.Equal(t, tt.wantCompleted, update.CompletedTasks != nil)
		})
	}
}

func TestNewUpdateUserRequestKeepsEmptyCollections(t *testing.T) {
	req := NewUpdateUserRequest(domain.ProgressUpdate{
		XP:             0,
		TasksCompleted: 0,
		Tasks:          []domain.Task{},
		CompletedTasks: []domain.Task{},
		Version:        9,
	})
	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"xp":0,"tasks_completed":0,"tasks":[],"completed_tasks":[],"version":9}`, string(body))
}

func TestEnvelope(t *testing.T) {
	assert.JSONEq(t, `{"status":"success","data":{"applied":true}}`, NewSuccess(UpdateUserResponse{Applied: true}, nil).String())
	assert.JSONEq(t, `{"status":"error","code":"USER_NOT_FOUND","error":"user not found"}`, NewError(CodeUserNotFound, "user not found", nil).String())
}
