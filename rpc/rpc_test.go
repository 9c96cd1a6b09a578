package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
	"github.com/MixinNetwork/wabisabi-go/round"
)

func startCoordinator(t *testing.T) (*round.Coordinator, *Client) {
	signer, err := round.GenerateSigner()
	require.NoError(t, err)
	coordinator, err := round.NewCoordinator(signer, 2, 51, zap.NewNop(), nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(UnaryServerInterceptor(zap.NewNop())))
	RegisterCoordinatorServer(s, NewServer(coordinator))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return coordinator, NewClient(conn)
}

func TestRegisterOverGRPC(t *testing.T) {
	assert := assert.New(t)

	coordinator, rpcClient := startCoordinator(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	announcement, err := rpcClient.GetRoundAnnouncement(ctx)
	require.NoError(t, err)
	assert.Equal(coordinator.Current().ID(), announcement.ID())

	client, err := announcement.NewClient(nil)
	require.NoError(t, err)

	register := func(req *wabisabi.RegistrationRequestMessage, vc *wabisabi.ValidationContext) []*wabisabi.Credential {
		resp, err := rpcClient.RegisterCredentials(ctx, announcement.ID(), req)
		require.NoError(t, err)
		credentials, err := client.HandleResponse(resp, vc)
		require.NoError(t, err)
		return credentials
	}

	req, vc, err := client.CreateRequestForZeroAmount()
	require.NoError(t, err)
	register(req, vc)

	req, vc, err = client.CreateRequest([]btcutil.Amount{100000}, nil)
	require.NoError(t, err)
	spent := vc.Presented()
	register(req, vc)
	assert.Equal(int64(100000), coordinator.Current().Issuer().Balance())

	req, _, err = client.CreateRequest(nil, spent)
	require.NoError(t, err)
	_, err = rpcClient.RegisterCredentials(ctx, announcement.ID(), req)
	code, ok := wabisabi.ErrorCodeOf(err)
	require.True(t, ok, "%v", err)
	assert.Equal(wabisabi.SerialNumberAlreadyUsed, code)
	assert.ErrorIs(err, wabisabi.ErrSerialNumberAlreadyUsed)

	_, err = rpcClient.RegisterCredentials(ctx, "unknown", req)
	assert.ErrorIs(err, round.ErrUnknownRound)
}

func TestStatusMapping(t *testing.T) {
	assert := assert.New(t)

	err := toStatus(&wabisabi.ProtocolError{Code: wabisabi.NegativeBalance, Message: "balance 0, delta -1"})
	assert.Equal(codes.FailedPrecondition, status.Code(err))
	back := fromStatus(err)
	code, ok := wabisabi.ErrorCodeOf(back)
	assert.True(ok)
	assert.Equal(wabisabi.NegativeBalance, code)
	assert.Equal("NegativeBalance: balance 0, delta -1", back.Error())

	err = toStatus(wabisabi.ErrCoordinatorReceivedInvalidProofs)
	assert.Equal(codes.PermissionDenied, status.Code(err))

	plain := status.Error(codes.Unavailable, "down")
	assert.Equal(plain, fromStatus(plain))
	assert.Equal(codes.Internal, status.Code(toStatus(context.Canceled)))
}

func TestRegisterRequestEncoding(t *testing.T) {
	in := &RegisterRequest{RoundID: "abc"}
	data, err := in.MarshalBinary()
	require.NoError(t, err)

	var out RegisterRequest
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, "abc", out.RoundID)
	assert.Nil(t, out.Request)

	var c codec
	_, err = c.Marshal(struct{}{})
	assert.Error(t, err)
	assert.Error(t, c.Unmarshal(nil, &struct{}{}))
}
