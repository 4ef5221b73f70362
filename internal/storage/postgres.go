package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forumline/internal/model"
	"forumline/internal/vote"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at dsn.
func NewPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("storage: postgres dsn is empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MaxConnLifetime = 10 * time.Minute
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) UserName(ctx context.Context, id string) (string, error) {
	var name string
	err := p.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetch username: %w", err)
	}
	return name, nil
}

func (p *Postgres) UpsertUser(ctx context.Context, u model.User) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO users (id, username, email, profile_pic, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`,
		u.ID, u.Username, u.Email, u.ProfilePic, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (p *Postgres) Subforums(ctx context.Context) ([]model.Subforum, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name, description, accent, created_at FROM subforums ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("fetch subforums: %w", err)
	}
	defer rows.Close()
	out := make([]model.Subforum, 0)
	for rows.Next() {
		s, err := scanSubforum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subforum: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) Subforum(ctx context.Context, id string) (*model.Subforum, error) {
	s, err := scanSubforum(p.pool.QueryRow(ctx,
		`SELECT id, name, description, accent, created_at FROM subforums WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subforum: %w", err)
	}
	return &s, nil
}

func (p *Postgres) CreateSubforum(ctx context.Context, s model.Subforum) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO subforums (id, name, description, accent, created_at)
		VALUES ($1, $2, $3, $4, $5)`, s.ID, s.Name, s.Description, s.Accent, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create subforum: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteSubforum(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM subforums WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subforum: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Moderators(ctx context.Context, subID string) ([]string, error) {
	return p.strings(ctx, `SELECT user_id FROM moderators WHERE sub_id = $1 ORDER BY user_id`, subID)
}

func (p *Postgres) AddModerator(ctx context.Context, subID, userID string) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO moderators (sub_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, subID, userID)
	if err != nil {
		return fmt.Errorf("add moderator: %w", err)
	}
	return nil
}

func (p *Postgres) Follow(ctx context.Context, userID, subID string) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO user_follows_subforum (user_id, sub_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, subID)
	if err != nil {
		return fmt.Errorf("follow subforum: %w", err)
	}
	return nil
}

func (p *Postgres) Unfollow(ctx context.Context, userID, subID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM user_follows_subforum WHERE user_id = $1 AND sub_id = $2`, userID, subID)
	if err != nil {
		return fmt.Errorf("unfollow subforum: %w", err)
	}
	return nil
}

func (p *Postgres) FollowedSubforums(ctx context.Context, userID string) ([]string, error) {
	return p.strings(ctx, `SELECT sub_id FROM user_follows_subforum WHERE user_id = $1 ORDER BY sub_id`, userID)
}

const pgPublicationCols = `id, sub_id, user_id, title, content, score, img_url, created_at`

func (p *Postgres) Publications(ctx context.Context, subID string) ([]model.Publication, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgPublicationCols+` FROM publications
		WHERE sub_id = $1 ORDER BY created_at DESC`, subID)
	if err != nil {
		return nil, fmt.Errorf("fetch publications: %w", err)
	}
	defer rows.Close()
	out := make([]model.Publication, 0)
	for rows.Next() {
		pub, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		out = append(out, pub)
	}
	return out, rows.Err()
}

func (p *Postgres) Publication(ctx context.Context, id string) (*model.Publication, error) {
	pub, err := scanPublication(p.pool.QueryRow(ctx, `SELECT `+pgPublicationCols+` FROM publications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch publication: %w", err)
	}
	return &pub, nil
}

func (p *Postgres) FollowedFeed(ctx context.Context, userID string) ([]model.FeedItem, error) {
	rows, err := p.pool.Query(ctx, `SELECT p.id, p.sub_id, p.user_id, p.title, p.content, p.score, p.img_url, p.created_at, s.accent
		FROM publications p
		JOIN subforums s ON s.id = p.sub_id
		JOIN user_follows_subforum f ON f.sub_id = p.sub_id
		WHERE f.user_id = $1
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch followed feed: %w", err)
	}
	defer rows.Close()
	out := make([]model.FeedItem, 0)
	for rows.Next() {
		var it model.FeedItem
		var img *string
		pub := &it.Publication
		if err := rows.Scan(&pub.ID, &pub.SubforumID, &pub.AuthorID, &pub.Title, &pub.Content, &pub.Score, &img, &pub.CreatedAt, &it.Accent); err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		if img != nil {
			pub.ImageURL = *img
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (p *Postgres) CreatePublication(ctx context.Context, pub model.Publication) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO publications (`+pgPublicationCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pub.ID, pub.SubforumID, pub.AuthorID, pub.Title, pub.Content, pub.Score, nullIfEmpty(pub.ImageURL), pub.CreatedAt)
	if err != nil {
		return fmt.Errorf("create publication: %w", err)
	}
	return nil
}

func (p *Postgres) DeletePublication(ctx context.Context, id string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE pub_id = $1`, id); err != nil {
		return fmt.Errorf("delete publication comments: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM publications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

const pgCommentCols = `id, pub_id, user_id, content, created_at, score, parent_comment`

func (p *Postgres) Comments(ctx context.Context, pubID string, parentID *string, order model.CommentOrder) ([]model.Comment, error) {
	query := `SELECT ` + pgCommentCols + ` FROM comments WHERE pub_id = $1`
	args := []any{pubID}
	if parentID != nil {
		query += ` AND parent_comment = $2`
		args = append(args, *parentID)
	}
	query += " " + commentOrderClause(order)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}
	defer rows.Close()
	out := make([]model.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) Comment(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(p.pool.QueryRow(ctx, `SELECT `+pgCommentCols+` FROM comments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch comment: %w", err)
	}
	return &c, nil
}

func (p *Postgres) CreateComment(ctx context.Context, c model.Comment) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO comments (`+pgCommentCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.PublicationID, c.AuthorID, c.Content, c.CreatedAt, c.Score, c.ParentID)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteCommentTree(ctx context.Context, id string) (int64, error) {
	tag, err := p.pool.Exec(ctx, `WITH RECURSIVE comment_tree AS (
		SELECT id FROM comments WHERE id = $1
		UNION
		SELECT c.id FROM comments c JOIN comment_tree ct ON c.parent_comment = ct.id
	)
	DELETE FROM comments WHERE id IN (SELECT id FROM comment_tree)`, id)
	if err != nil {
		return 0, fmt.Errorf("delete comment tree: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) VoteState(ctx context.Context, t Target, userID, itemID string) (vote.State, error) {
	var v int
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT vote FROM %s WHERE user_id = $1 AND %s = $2`, t.VoteTable, t.Column),
		userID, itemID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return vote.None, nil
	}
	if err != nil {
		return vote.None, fmt.Errorf("fetch %s vote: %w", t.Name, err)
	}
	return vote.FromValue(v), nil
}

func (p *Postgres) ApplyVote(ctx context.Context, t Target, userID, itemID string, cast vote.Direction) (VoteResult, error) {
	var res VoteResult
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var score int
	err = tx.QueryRow(ctx, fmt.Sprintf(`SELECT score FROM %s WHERE id = $1 FOR UPDATE`, t.Table), itemID).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return res, ErrNotFound
	}
	if err != nil {
		return res, fmt.Errorf("fetch %s score: %w", t.Name, err)
	}

	var prior int
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT vote FROM %s WHERE user_id = $1 AND %s = $2`, t.VoteTable, t.Column),
		userID, itemID).Scan(&prior)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return res, fmt.Errorf("fetch %s vote: %w", t.Name, err)
	}

	res.Previous = vote.FromValue(prior)
	next, delta := vote.Transition(res.Previous, cast)
	res.Current = next

	var stmt string
	var args []any
	switch {
	case next == vote.None:
		stmt = fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND %s = $2`, t.VoteTable, t.Column)
		args = []any{userID, itemID}
	case res.Previous == vote.None:
		stmt = fmt.Sprintf(`INSERT INTO %s (user_id, %s, vote) VALUES ($1, $2, $3)`, t.VoteTable, t.Column)
		args = []any{userID, itemID, next.Value()}
	default:
		stmt = fmt.Sprintf(`UPDATE %s SET vote = $1 WHERE user_id = $2 AND %s = $3`, t.VoteTable, t.Column)
		args = []any{next.Value(), userID, itemID}
	}
	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return res, fmt.Errorf("write %s vote: %w", t.Name, err)
	}

	err = tx.QueryRow(ctx, fmt.Sprintf(`UPDATE %s SET score = score + $1 WHERE id = $2 RETURNING score`, t.Table),
		delta, itemID).Scan(&res.Score)
	if err != nil {
		return res, fmt.Errorf("update %s score: %w", t.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit %s vote: %w", t.Name, err)
	}
	return res, nil
}

func (p *Postgres) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
