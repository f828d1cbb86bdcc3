package cognito

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"keygate/internal/config"
	"keygate/internal/domain/auth"
)

const (
	apiContentType = "application/x-amz-json-1.1"
	targetPrefix   = "AWSCognitoIdentityProviderService."
)

// Gateway talks to an AWS Cognito user pool. The user-pool client APIs accept
// unsigned JSON-RPC calls authenticated by client id and SECRET_HASH; the
// hosted-UI OAuth endpoints use standard OAuth 2.0 client authentication.
type Gateway struct {
	cfg      config.ProviderConfig
	endpoint string
	http     *http.Client
}

// New creates a Cognito gateway from provider configuration.
func New(cfg config.ProviderConfig) *Gateway {
	return &Gateway{
		cfg:      cfg,
		endpoint: fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/", cfg.Region),
		http:     &http.Client{Timeout: cfg.OAuthTimeout},
	}
}

// secretHash computes the Cognito SECRET_HASH for a username:
// base64(HMAC-SHA256(client_secret, username || client_id)).
func (g *Gateway) secretHash(username string) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.ClientSecret))
	mac.Write([]byte(username + g.cfg.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (g *Gateway) withSecretHash(params map[string]string, username string) {
	if g.cfg.ClientSecret != "" && username != "" {
		params["SECRET_HASH"] = g.secretHash(username)
	}
}

// call performs one unsigned user-pool API call and decodes the response into
// out. API failures come back as mapped taxonomy errors.
func (g *Gateway) call(ctx context.Context, action string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", apiContentType)
	req.Header.Set("X-Amz-Target", targetPrefix+action)

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", auth.ErrProviderUnavailable, action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", auth.ErrProviderUnavailable, action, err)
	}

	if resp.StatusCode != http.StatusOK {
		return g.mapAPIError(action, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", auth.ErrProviderUnavailable, action, err)
	}
	return nil
}

// apiErrorBody is the JSON-RPC error shape. The type may carry a service
// namespace prefix separated by '#'.
type apiErrorBody struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

func (g *Gateway) mapAPIError(action string, status int, data []byte) error {
	var body apiErrorBody
	_ = json.Unmarshal(data, &body)
	typ := body.Type
	if i := strings.LastIndexByte(typ, '#'); i >= 0 {
		typ = typ[i+1:]
	}
	log.Debug().Str("action", action).Str("error_type", typ).Int("status", status).Msg("provider call rejected")

	switch typ {
	case "NotAuthorizedException", "UserNotConfirmedException", "PasswordResetRequiredException":
		return auth.ErrInvalidCredentials
	case "UserNotFoundException":
		return auth.ErrUserNotFound
	case "CodeMismatchException":
		return auth.NewValidationError(auth.ReasonCodeMismatch, "invalid confirmation code")
	case "ExpiredCodeException":
		return auth.NewValidationError(auth.ReasonExpiredCode, "confirmation code has expired")
	case "InvalidPasswordException":
		return auth.NewValidationError(auth.ReasonInvalidPassword, "password does not meet the policy")
	case "UsernameExistsException":
		return auth.NewValidationError(auth.ReasonUsernameExists, "an account with this username already exists")
	case "InvalidParameterException":
		return auth.NewValidationError(auth.ReasonMissingField, body.Message)
	case "LimitExceededException", "TooManyRequestsException":
		return auth.NewValidationError(auth.ReasonRateLimited, "too many attempts, try again later")
	default:
		return fmt.Errorf("%w: %s returned %s (%d)", auth.ErrProviderUnavailable, action, typ, status)
	}
}

type authResultWire struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
	IDToken      string `json:"IdToken"`
	TokenType    string `json:"TokenType"`
	ExpiresIn    int    `json:"ExpiresIn"`
}

func (w *authResultWire) result() *auth.AuthenticationResult {
	if w == nil {
		return nil
	}
	return &auth.AuthenticationResult{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
		IDToken:      w.IDToken,
		TokenType:    w.TokenType,
		ExpiresIn:    w.ExpiresIn,
	}
}

type codeDeliveryWire struct {
	DeliveryMedium string `json:"DeliveryMedium"`
	Destination    string `json:"Destination"`
}

func (w *codeDeliveryWire) delivery() *auth.CodeDelivery {
	if w == nil {
		return nil
	}
	return &auth.CodeDelivery{Medium: w.DeliveryMedium, Destination: w.Destination}
}

// InitiateAuth runs the USER_PASSWORD_AUTH flow.
func (g *Gateway) InitiateAuth(ctx context.Context, username, password string) (*auth.AuthChallenge, error) {
	params := map[string]string{"USERNAME": username, "PASSWORD": password}
	g.withSecretHash(params, username)

	var resp struct {
		ChallengeName        string          `json:"ChallengeName"`
		Session              string          `json:"Session"`
		AuthenticationResult *authResultWire `json:"AuthenticationResult"`
	}
	err := g.call(ctx, "InitiateAuth", map[string]any{
		"AuthFlow":       "USER_PASSWORD_AUTH",
		"ClientId":       g.cfg.ClientID,
		"AuthParameters": params,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &auth.AuthChallenge{
		ChallengeName: resp.ChallengeName,
		Session:       resp.Session,
		Result:        resp.AuthenticationResult.result(),
	}, nil
}

// RefreshToken runs the REFRESH_TOKEN_AUTH flow. SECRET_HASH is omitted since
// it would require the user's sub, which a bare refresh token does not carry.
func (g *Gateway) RefreshToken(ctx context.Context, refreshToken string) (*auth.AuthenticationResult, error) {
	var resp struct {
		AuthenticationResult *authResultWire `json:"AuthenticationResult"`
	}
	err := g.call(ctx, "InitiateAuth", map[string]any{
		"AuthFlow":       "REFRESH_TOKEN_AUTH",
		"ClientId":       g.cfg.ClientID,
		"AuthParameters": map[string]string{"REFRESH_TOKEN": refreshToken},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AuthenticationResult == nil {
		return nil, auth.ErrInvalidToken
	}
	return resp.AuthenticationResult.result(), nil
}

// SignUp registers a new user.
func (g *Gateway) SignUp(ctx context.Context, in auth.SignUpInput) (*auth.Registration, error) {
	attrs := []map[string]string{{"Name": "email", "Value": in.Email}}
	if in.GivenName != "" {
		attrs = append(attrs, map[string]string{"Name": "given_name", "Value": in.GivenName})
	}
	if in.FamilyName != "" {
		attrs = append(attrs, map[string]string{"Name": "family_name", "Value": in.FamilyName})
	}

	req := map[string]any{
		"ClientId":       g.cfg.ClientID,
		"Username":       in.Username,
		"Password":       in.Password,
		"UserAttributes": attrs,
	}
	if g.cfg.ClientSecret != "" {
		req["SecretHash"] = g.secretHash(in.Username)
	}

	var resp struct {
		UserSub             string            `json:"UserSub"`
		UserConfirmed       bool              `json:"UserConfirmed"`
		CodeDeliveryDetails *codeDeliveryWire `json:"CodeDeliveryDetails"`
	}
	if err := g.call(ctx, "SignUp", req, &resp); err != nil {
		return nil, err
	}
	return &auth.Registration{
		UserSub:       resp.UserSub,
		UserConfirmed: resp.UserConfirmed,
		CodeDelivery:  resp.CodeDeliveryDetails.delivery(),
	}, nil
}

// ConfirmSignUp verifies a registration confirmation code.
func (g *Gateway) ConfirmSignUp(ctx context.Context, username, code string) error {
	req := map[string]any{
		"ClientId":         g.cfg.ClientID,
		"Username":         username,
		"ConfirmationCode": code,
	}
	if g.cfg.ClientSecret != "" {
		req["SecretHash"] = g.secretHash(username)
	}
	return g.call(ctx, "ConfirmSignUp", req, nil)
}

// ResendConfirmationCode requests a fresh registration code.
func (g *Gateway) ResendConfirmationCode(ctx context.Context, username string) (*auth.CodeDelivery, error) {
	req := map[string]any{"ClientId": g.cfg.ClientID, "Username": username}
	if g.cfg.ClientSecret != "" {
		req["SecretHash"] = g.secretHash(username)
	}
	var resp struct {
		CodeDeliveryDetails *codeDeliveryWire `json:"CodeDeliveryDetails"`
	}
	if err := g.call(ctx, "ResendConfirmationCode", req, &resp); err != nil {
		return nil, err
	}
	return resp.CodeDeliveryDetails.delivery(), nil
}

// ForgotPassword starts a password reset.
func (g *Gateway) ForgotPassword(ctx context.Context, username string) (*auth.CodeDelivery, error) {
	req := map[string]any{"ClientId": g.cfg.ClientID, "Username": username}
	if g.cfg.ClientSecret != "" {
		req["SecretHash"] = g.secretHash(username)
	}
	var resp struct {
		CodeDeliveryDetails *codeDeliveryWire `json:"CodeDeliveryDetails"`
	}
	if err := g.call(ctx, "ForgotPassword", req, &resp); err != nil {
		return nil, err
	}
	return resp.CodeDeliveryDetails.delivery(), nil
}

// ConfirmForgotPassword completes a password reset.
func (g *Gateway) ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error {
	req := map[string]any{
		"ClientId":         g.cfg.ClientID,
		"Username":         username,
		"ConfirmationCode": code,
		"Password":         newPassword,
	}
	if g.cfg.ClientSecret != "" {
		req["SecretHash"] = g.secretHash(username)
	}
	return g.call(ctx, "ConfirmForgotPassword", req, nil)
}

// GetUser resolves the account behind an access token.
func (g *Gateway) GetUser(ctx context.Context, accessToken string) (*auth.User, error) {
	var resp struct {
		Username       string `json:"Username"`
		UserAttributes []struct {
			Name  string `json:"Name"`
			Value string `json:"Value"`
		} `json:"UserAttributes"`
	}
	err := g.call(ctx, "GetUser", map[string]any{"AccessToken": accessToken}, &resp)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	user := &auth.User{
		PreferredUsername: resp.Username,
		Enabled:           true,
		UserStatus:        "CONFIRMED",
	}
	for _, attr := range resp.UserAttributes {
		switch attr.Name {
		case "sub":
			user.ID = attr.Value
			user.ProviderSub = attr.Value
		case "email":
			user.Email = attr.Value
		case "email_verified":
			user.EmailVerified, _ = strconv.ParseBool(attr.Value)
		case "given_name":
			user.GivenName = attr.Value
		case "family_name":
			user.FamilyName = attr.Value
		case "preferred_username":
			user.PreferredUsername = attr.Value
		case "phone_number":
			user.PhoneNumber = attr.Value
		}
	}
	return user, nil
}

// AdminGetUser is not reachable without SigV4-signed AWS credentials, which
// this deployment does not carry. Callers needing account lookups by name use
// the token-scoped GetUser instead.
func (g *Gateway) AdminGetUser(ctx context.Context, username string) (*auth.User, error) {
	return nil, fmt.Errorf("%w: AdminGetUser requires AWS credentials", auth.ErrProviderUnavailable)
}

// GlobalSignOut revokes every token the provider issued for the user.
func (g *Gateway) GlobalSignOut(ctx context.Context, accessToken string) error {
	return g.call(ctx, "GlobalSignOut", map[string]any{"AccessToken": accessToken}, nil)
}
