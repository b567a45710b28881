// internal/jupiter/tokens.go
package jupiter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rovshanmuradov/jupiter-swap/internal/token"
)

// TokenByMint fetches metadata for a single mint.
func (c *Client) TokenByMint(ctx context.Context, mint string) (token.Token, error) {
	endpoint, err := c.endpoint(tokenPath)
	if err != nil {
		return token.Token{}, err
	}

	body, err := c.do(ctx, "token", http.MethodGet, endpoint+"/"+url.PathEscape(mint), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return token.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, mint)
		}
		return token.Token{}, err
	}

	var resp tokenResponse
	if err := decode(body, &resp); err != nil {
		return token.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, mint)
	}
	if resp.Address == "" {
		return token.Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, mint)
	}
	return resp.token(), nil
}

// VerifiedTokens fetches the verified token list.
func (c *Client) VerifiedTokens(ctx context.Context) ([]token.Token, error) {
	endpoint, err := c.endpoint(verifiedPath)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, "verified-tokens", http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp []tokenResponse
	if err := decode(body, &resp); err != nil {
		return nil, err
	}

	tokens := make([]token.Token, 0, len(resp))
	for _, t := range resp {
		if t.Address == "" {
			continue
		}
		tokens = append(tokens, t.token())
	}
	return tokens, nil
}

func (t tokenResponse) token() token.Token {
	return token.Token{
		Mint:     t.Address,
		Symbol:   t.Symbol,
		Name:     t.Name,
		Decimals: t.Decimals,
	}
}

var _ token.Source = (*Client)(nil)
