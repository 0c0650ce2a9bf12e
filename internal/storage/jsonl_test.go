package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"cpamm/internal/model"
)

func TestJsonlJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "actions.jsonl")
	journal := NewJsonlJournal(path)
	ctx := context.Background()

	first := model.ActionRecord{
		Pool:      model.PoolAddress(1).Hex(),
		Sequence:  1,
		Action:    model.ActionSwap,
		Caller:    common.HexToAddress("0x01").Hex(),
		Deposits:  []model.TransferEvidence{{Asset: 1, Amount: 500, Sender: common.HexToAddress("0x01"), Receiver: model.PoolAddress(1)}},
		AssetOut:  []model.AssetID{2},
		AmountOut: []uint64{142},
		Ratio:     3673,
		OK:        true,
	}
	second := model.ActionRecord{Pool: first.Pool, Sequence: 2, Action: model.ActionBurn, Error: "burn: redemption exceeds shares in circulation"}

	require.NoError(t, journal.PutActions(ctx, []model.ActionRecord{first}))
	require.NoError(t, journal.PutActions(ctx, []model.ActionRecord{second}))
	require.NoError(t, journal.PutActions(ctx, nil))

	var got []model.ActionRecord
	err := ScanActions(path, func(r model.ActionRecord) error {
		got = append(got, r)
		return nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, []model.ActionRecord{first, second}, got)
}

func TestScanActionsSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.jsonl")
	data := "{\"pool\":\"p\",\"sequence\":1,\"action\":\"swap\",\"ok\":true}\n\nnot json\n{\"pool\":\"p\",\"sequence\":2}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	var seqs []uint64
	var bad []int
	err := ScanActions(path, func(r model.ActionRecord) error {
		seqs = append(seqs, r.Sequence)
		return nil
	}, func(line int, _ error) {
		bad = append(bad, line)
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, seqs)
	require.Equal(t, []int{3}, bad)
}

func TestScanActionsMissingFile(t *testing.T) {
	err := ScanActions(filepath.Join(t.TempDir(), "missing.jsonl"), func(model.ActionRecord) error { return nil }, nil)
	require.Error(t, err)
}
