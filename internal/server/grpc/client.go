package grpc

import (
	"context"

	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client calls AuthService over an existing connection using the JSON codec.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) Register(ctx context.Context, username, password string) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	if err := c.invoke(ctx, RegisterFullMethodName, &RegisterRequest{Username: username, Password: password}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*TokenPairResponse, error) {
	out := new(TokenPairResponse)
	if err := c.invoke(ctx, LoginFullMethodName, &LoginRequest{Username: username, Password: password}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPairResponse, error) {
	out := new(TokenPairResponse)
	if err := c.invoke(ctx, RefreshFullMethodName, &RefreshRequest{RefreshToken: refreshToken}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.invoke(ctx, LogoutFullMethodName, &LogoutRequest{RefreshToken: refreshToken}, new(LogoutResponse))
}

func (c *Client) LogoutAll(ctx context.Context, accessToken string) (*LogoutAllResponse, error) {
	out := new(LogoutAllResponse)
	if err := c.invoke(withBearer(ctx, accessToken), LogoutAllFullMethodName, &LogoutAllRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) WhoAmI(ctx context.Context, accessToken string) (*WhoAmIResponse, error) {
	out := new(WhoAmIResponse)
	if err := c.invoke(withBearer(ctx, accessToken), WhoAmIFullMethodName, &WhoAmIRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListUsers(ctx context.Context, accessToken string, offset, limit int) (*ListUsersResponse, error) {
	out := new(ListUsersResponse)
	if err := c.invoke(withBearer(ctx, accessToken), ListUsersFullMethodName, &ListUsersRequest{Offset: offset, Limit: limit}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func withBearer(ctx context.Context, accessToken string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AuthorizationHeaderName, "Bearer "+accessToken)
}
