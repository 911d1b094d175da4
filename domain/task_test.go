package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestTaskDraftValidate(t *testing.T) {
	tests := []struct {
		name      string
		draft     TaskDraft
		wantField string
	}{
		{name: "blank name", draft: TaskDraft{Name: "   "}, wantField: "name"},
		{name: "negative experience", draft: TaskDraft{Name: "a", Experience: intPtr(-1)}, wantField: "experience"},
		{name: "experience above ceiling", draft: TaskDraft{Name: "a", Experience: intPtr(MaxExperience + 1)}, wantField: "experience"},
		{name: "difficulty too high", draft: TaskDraft{Name: "a", Difficulty: 11}, wantField: "difficulty"},
		{name: "importance too low", draft: TaskDraft{Name: "a", Importance: -3}, wantField: "importance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			require.Error(t, err)
			assert.True(t, IsDomainError(err, ErrCodeInvalid))
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestTaskDraftValidateAcceptsCeiling(t *testing.T) {
	draft := TaskDraft{Name: "a", Experience: intPtr(MaxExperience)}
	require.NoError(t, draft.Validate())
}

func TestTaskDraftValidateDefaults(t *testing.T) {
	draft := TaskDraft{Name: "  Water plants  "}
	require.NoError(t, draft.Validate())

	assert.Equal(t, "Water plants", draft.Name)
	assert.Equal(t, DefaultDifficulty, draft.Difficulty)
	assert.Equal(t, DefaultImportance, draft.Importance)
	require.NotNil(t, draft.Experience)
	assert.Equal(t, DefaultExperience, *draft.Experience)
}

func TestQuickDraft(t *testing.T) {
	draft := QuickDraft("Read a chapter")
	require.NoError(t, draft.Validate())
	assert.Equal(t, 5, draft.Difficulty)
	assert.Equal(t, 5, draft.Importance)
	assert.Equal(t, 150, *draft.Experience)
	assert.Nil(t, draft.Deadline)
	assert.False(t, draft.Collaborative)
}

func TestErrorWrapping(t *testing.T) {
	err := WrapError(ErrCodeNotFound, "task x is gone", ErrTaskNotFound)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.True(t, IsDomainError(err, ErrCodeNotFound))
	assert.False(t, IsDomainError(err, ErrCodeInvalid))

	syncErr := NewSyncError("push", assert.AnError)
	assert.ErrorIs(t, syncErr, assert.AnError)
	assert.True(t, IsDomainError(syncErr, ErrCodeSyncFailed))
}
