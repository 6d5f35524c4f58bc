package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/notify"
	"github.com/sokoniarena/sokoni/internal/store"
)

func TestWritePromptStatus(t *testing.T) {
	updated := time.Now().Add(-3 * time.Minute)
	s := PromptStatus{
		InstallDismissed: true,
		Permission:       "granted",
		PrefsPath:        "/tmp/prefs.json",
		UpdatedAt:        &updated,
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writePromptStatus(&buf, s, "text"))
		out := buf.String()
		assert.Contains(t, out, "Install banner:       dismissed")
		assert.Contains(t, out, "Notification banner:  eligible")
		assert.Contains(t, out, "Permission:           granted")
		assert.Contains(t, out, "3 minutes ago")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writePromptStatus(&buf, s, "json"))
		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, true, got["install_dismissed"])
		assert.Equal(t, "granted", got["notification_permission"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writePromptStatus(&buf, s, "yaml"))
		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, false, got["notification_dismissed"])
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, writePromptStatus(&bytes.Buffer{}, s, "xml"))
	})
}

func TestCollectPromptStatus(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	kv, err := store.OpenFileKV(filepath.Join(t.TempDir(), "prefs.json"))
	require.NoError(t, err)

	s := collectPromptStatus(kv)
	assert.False(t, s.InstallDismissed)
	assert.Equal(t, "default", s.Permission)
	assert.Nil(t, s.UpdatedAt)
	assert.False(t, s.LauncherInstalled)

	require.NoError(t, kv.Set(store.NotificationDismissedKey, "true"))
	require.NoError(t, kv.Set(notify.PermissionKey, "denied"))

	s = collectPromptStatus(kv)
	assert.True(t, s.NotificationDismissed)
	assert.Equal(t, "denied", s.Permission)
	assert.NotNil(t, s.UpdatedAt)
}

func TestResetPrompts(t *testing.T) {
	seed := func() *store.MemoryKV {
		kv := store.NewMemoryKV()
		_ = kv.Set(store.InstallDismissedKey, "true")
		_ = kv.Set(store.NotificationDismissedKey, "true")
		_ = kv.Set(notify.PermissionKey, "denied")
		return kv
	}

	kv := seed()
	require.NoError(t, resetPrompts(kv, "install"))
	flags := store.NewDismissalFlags(kv, nil)
	assert.False(t, flags.IsDismissed(model.BannerInstall))
	assert.True(t, flags.IsDismissed(model.BannerNotification))

	kv = seed()
	require.NoError(t, resetPrompts(kv, "permission"))
	_, ok, _ := kv.Get(notify.PermissionKey)
	assert.False(t, ok)
	assert.True(t, store.NewDismissalFlags(kv, nil).IsDismissed(model.BannerInstall))

	kv = seed()
	require.NoError(t, resetPrompts(kv, "all"))
	assert.Empty(t, kv.Snapshot())

	assert.Error(t, resetPrompts(store.NewMemoryKV(), "everything"))
}
