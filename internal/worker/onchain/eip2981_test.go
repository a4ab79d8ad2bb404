package onchain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	output []byte
	err    error
	last   ethereum.CallMsg
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.last = call
	return f.output, f.err
}

func TestRoyaltyBps(t *testing.T) {
	receiver := common.HexToAddress("0x00000000000000000000000000000000000000C1")
	output, err := royaltyInfoAbi.Methods["royaltyInfo"].Outputs.Pack(receiver, big.NewInt(750))
	require.NoError(t, err)
	caller := &fakeCaller{output: output}

	recipient, bps, err := NewRoyaltyInfoReader(caller).RoyaltyBps(context.Background(), "0x0000000000000000000000000000000000000c01", "42")
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000c1", recipient)
	assert.Equal(t, int64(750), bps)

	args, err := royaltyInfoAbi.Methods["royaltyInfo"].Inputs.Unpack(caller.last.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(42), args[0].(*big.Int).Int64())
	assert.Equal(t, int64(10000), args[1].(*big.Int).Int64())
}

func TestRoyaltyBps_ZeroReceiver(t *testing.T) {
	output, err := royaltyInfoAbi.Methods["royaltyInfo"].Outputs.Pack(common.Address{}, big.NewInt(500))
	require.NoError(t, err)

	recipient, bps, err := NewRoyaltyInfoReader(&fakeCaller{output: output}).RoyaltyBps(context.Background(), "0x0000000000000000000000000000000000000c01", "1")
	require.NoError(t, err)
	assert.Empty(t, recipient)
	assert.Zero(t, bps)
}

func TestRoyaltyBps_Errors(t *testing.T) {
	reader := NewRoyaltyInfoReader(&fakeCaller{err: errors.New("execution reverted")})

	_, _, err := reader.RoyaltyBps(context.Background(), "0x0000000000000000000000000000000000000c01", "1")
	assert.ErrorContains(t, err, "execution reverted")

	_, _, err = reader.RoyaltyBps(context.Background(), "0x0000000000000000000000000000000000000c01", "not-a-number")
	assert.Error(t, err)
}
