package rpc

import (
	"context"

	"google.golang.org/grpc"

	wabisabi "github.com/MixinNetwork/wabisabi-go"
	"github.com/MixinNetwork/wabisabi-go/round"
)

// Client calls a coordinator. Errors returned by the issuer come back as
// *wabisabi.ProtocolError values.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) GetRoundAnnouncement(ctx context.Context, opts ...grpc.CallOption) (*round.Announcement, error) {
	out := new(round.Announcement)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.conn.Invoke(ctx, getRoundAnnouncementMethod, &AnnouncementRequest{}, out, opts...); err != nil {
		return nil, fromStatus(err)
	}
	return out, nil
}

func (c *Client) RegisterCredentials(ctx context.Context, roundID string, req *wabisabi.RegistrationRequestMessage, opts ...grpc.CallOption) (*wabisabi.RegistrationResponseMessage, error) {
	in := &RegisterRequest{RoundID: roundID, Request: req}
	out := new(wabisabi.RegistrationResponseMessage)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.conn.Invoke(ctx, registerCredentialsMethod, in, out, opts...); err != nil {
		return nil, fromStatus(err)
	}
	return out, nil
}
