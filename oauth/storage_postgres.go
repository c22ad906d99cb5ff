package oauth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStorage persists tokens and client registrations in a PostgreSQL
// table, keyed by authorization server issuer, for clients that need
// tokens to survive a process restart. The schema it expects:
//
//	CREATE TABLE oauth_credentials (
//	    issuer        TEXT PRIMARY KEY,
//	    access_token  TEXT,
//	    token_type    TEXT,
//	    refresh_token TEXT,
//	    expires_at    TIMESTAMPTZ,
//	    scope         TEXT,
//	    client_id     TEXT,
//	    client_secret TEXT,
//	    redirect_uris TEXT[]
//	);
type PostgresStorage struct {
	connectionString string
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage builds a PostgresStorage using connectionString as a
// standard libpq connection string; a connection is opened fresh for each
// call rather than held open, matching how short-lived CLI-style clients
// use the database.
func NewPostgresStorage(connectionString string) *PostgresStorage {
	return &PostgresStorage{connectionString: connectionString}
}

func (s *PostgresStorage) open() (*sql.DB, error) {
	db, err := sql.Open("postgres", s.connectionString)
	if err != nil {
		return nil, fmt.Errorf("oauth storage: db connect: %w", err)
	}
	return db, nil
}

func (s *PostgresStorage) LoadToken(ctx context.Context, issuer string) (Token, bool, error) {
	db, err := s.open()
	if err != nil {
		return Token{}, false, err
	}
	defer db.Close()

	var tok Token
	var accessToken, tokenType, refreshToken, scope sql.NullString
	var expiresAt sql.NullTime
	query := `SELECT access_token, token_type, refresh_token, expires_at, scope FROM oauth_credentials WHERE issuer = $1 LIMIT 1`
	err = db.QueryRowContext(ctx, query, issuer).Scan(&accessToken, &tokenType, &refreshToken, &expiresAt, &scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Token{}, false, nil
		}
		return Token{}, false, fmt.Errorf("oauth storage: load token for %s: %w", issuer, err)
	}
	tok.AccessToken = accessToken.String
	tok.TokenType = tokenType.String
	tok.RefreshToken = refreshToken.String
	tok.Scope = scope.String
	if expiresAt.Valid {
		tok.ExpiresAt = expiresAt.Time
	}
	return tok, true, nil
}

func (s *PostgresStorage) SaveToken(ctx context.Context, issuer string, tok Token) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	query := `
		INSERT INTO oauth_credentials (issuer, access_token, token_type, refresh_token, expires_at, scope)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (issuer) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			token_type = EXCLUDED.token_type,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope
	`
	_, err = db.ExecContext(ctx, query, issuer, tok.AccessToken, tok.TokenType, tok.RefreshToken, tok.ExpiresAt, tok.Scope)
	if err != nil {
		return fmt.Errorf("oauth storage: save token for %s: %w", issuer, err)
	}
	return nil
}

func (s *PostgresStorage) LoadClient(ctx context.Context, issuer string) (ClientInfo, bool, error) {
	db, err := s.open()
	if err != nil {
		return ClientInfo{}, false, err
	}
	defer db.Close()

	var client ClientInfo
	var clientID, clientSecret sql.NullString
	var redirectURIs []string
	query := `SELECT client_id, client_secret, redirect_uris FROM oauth_credentials WHERE issuer = $1 LIMIT 1`
	err = db.QueryRowContext(ctx, query, issuer).Scan(&clientID, &clientSecret, pq.Array(&redirectURIs))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ClientInfo{}, false, nil
		}
		return ClientInfo{}, false, fmt.Errorf("oauth storage: load client for %s: %w", issuer, err)
	}
	if !clientID.Valid {
		return ClientInfo{}, false, nil
	}
	client.ClientID = clientID.String
	client.ClientSecret = clientSecret.String
	client.RedirectURIs = redirectURIs
	return client, true, nil
}

func (s *PostgresStorage) SaveClient(ctx context.Context, issuer string, client ClientInfo) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	query := `
		INSERT INTO oauth_credentials (issuer, client_id, client_secret, redirect_uris)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (issuer) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			redirect_uris = EXCLUDED.redirect_uris
	`
	_, err = db.ExecContext(ctx, query, issuer, client.ClientID, client.ClientSecret, pq.Array(client.RedirectURIs))
	if err != nil {
		return fmt.Errorf("oauth storage: save client for %s: %w", issuer, err)
	}
	return nil
}
