// Package integration exercises the assembled vault end to end: open,
// save, reopen, migrate, export, restore, and the CLI surface.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamlayer/artvault/pkg/artvault"
	"github.com/dreamlayer/artvault/pkg/types"
)

// discard is the logger for tests that do not assert on log output.
var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// openVault opens a vault over dir without the periodic snapshot loop.
// Close is registered as cleanup; tests that reopen the same directory
// close explicitly first.
func openVault(t *testing.T, dir string, opts ...artvault.Option) *artvault.Vault {
	t.Helper()
	opts = append([]artvault.Option{
		artvault.WithLogger(discard),
		artvault.WithoutScheduler(),
	}, opts...)
	v, err := artvault.Open(context.Background(), types.Config{DataDir: dir}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v
}

// mustSave saves an artifact with just a prompt and returns the
// normalized record.
func mustSave(t *testing.T, v *artvault.Vault, prompt string) types.Artifact {
	t.Helper()
	res := v.SaveArtifact(context.Background(), types.Artifact{Prompt: prompt}, true)
	require.True(t, res.Success)
	require.NotEmpty(t, res.Record.ID)
	return res.Record
}

// encodeRecords marshals records the way the flat store stores a
// collection, for seeding legacy keys.
func encodeRecords[R types.Record](t *testing.T, records []R) string {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	return string(data)
}

// flakyRemote fails every SetFavorite call until healed.
type flakyRemote struct {
	healed bool
	calls  []string
}

func (r *flakyRemote) SetFavorite(_ context.Context, entityID string, desired bool) error {
	if !r.healed {
		return errRemoteDown
	}
	r.calls = append(r.calls, entityID)
	return nil
}

var errRemoteDown = &remoteError{}

type remoteError struct{}

func (*remoteError) Error() string { return "remote unavailable" }
