package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"forumline/internal/model"
	"forumline/internal/vote"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a local SQLite file, for offline use and tests.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn with foreign keys enforced.
func NewSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		return nil, errors.New("storage: sqlite dsn is empty")
	}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

// DB exposes the handle for migrations.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) UserName(ctx context.Context, id string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT username FROM users WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetch username: %w", err)
	}
	return name, nil
}

func (s *SQLite) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, username, email, profile_pic, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET username = excluded.username`,
		u.ID, u.Username, u.Email, u.ProfilePic, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQLite) Subforums(ctx context.Context) ([]model.Subforum, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, accent, created_at FROM subforums ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("fetch subforums: %w", err)
	}
	defer rows.Close()
	out := make([]model.Subforum, 0)
	for rows.Next() {
		sub, err := scanSubforum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subforum: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLite) Subforum(ctx context.Context, id string) (*model.Subforum, error) {
	sub, err := scanSubforum(s.db.QueryRowContext(ctx,
		`SELECT id, name, description, accent, created_at FROM subforums WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subforum: %w", err)
	}
	return &sub, nil
}

func (s *SQLite) CreateSubforum(ctx context.Context, sub model.Subforum) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO subforums (id, name, description, accent, created_at)
		VALUES (?, ?, ?, ?, ?)`, sub.ID, sub.Name, sub.Description, sub.Accent, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("create subforum: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteSubforum(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subforums WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subforum: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) Moderators(ctx context.Context, subID string) ([]string, error) {
	return s.strings(ctx, `SELECT user_id FROM moderators WHERE sub_id = ? ORDER BY user_id`, subID)
}

func (s *SQLite) AddModerator(ctx context.Context, subID, userID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO moderators (sub_id, user_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`, subID, userID)
	if err != nil {
		return fmt.Errorf("add moderator: %w", err)
	}
	return nil
}

func (s *SQLite) Follow(ctx context.Context, userID, subID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_follows_subforum (user_id, sub_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`, userID, subID)
	if err != nil {
		return fmt.Errorf("follow subforum: %w", err)
	}
	return nil
}

func (s *SQLite) Unfollow(ctx context.Context, userID, subID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_follows_subforum WHERE user_id = ? AND sub_id = ?`, userID, subID)
	if err != nil {
		return fmt.Errorf("unfollow subforum: %w", err)
	}
	return nil
}

func (s *SQLite) FollowedSubforums(ctx context.Context, userID string) ([]string, error) {
	return s.strings(ctx, `SELECT sub_id FROM user_follows_subforum WHERE user_id = ? ORDER BY sub_id`, userID)
}

const sqlitePublicationCols = `id, sub_id, user_id, title, content, score, img_url, created_at`

func (s *SQLite) Publications(ctx context.Context, subID string) ([]model.Publication, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlitePublicationCols+` FROM publications
		WHERE sub_id = ? ORDER BY created_at DESC`, subID)
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

func (s *SQLite) Publication(ctx context.Context, id string) (*model.Publication, error) {
	pub, err := scanPublication(s.db.QueryRowContext(ctx, `SELECT `+sqlitePublicationCols+` FROM publications WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch publication: %w", err)
	}
	return &pub, nil
}

func (s *SQLite) FollowedFeed(ctx context.Context, userID string) ([]model.FeedItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT p.id, p.sub_id, p.user_id, p.title, p.content, p.score, p.img_url, p.created_at, s.accent
		FROM publications p
		JOIN subforums s ON s.id = p.sub_id
		JOIN user_follows_subforum f ON f.sub_id = p.sub_id
		WHERE f.user_id = ?
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

func (s *SQLite) CreatePublication(ctx context.Context, pub model.Publication) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO publications (`+sqlitePublicationCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pub.ID, pub.SubforumID, pub.AuthorID, pub.Title, pub.Content, pub.Score, nullIfEmpty(pub.ImageURL), pub.CreatedAt)
	if err != nil {
		return fmt.Errorf("create publication: %w", err)
	}
	return nil
}

func (s *SQLite) DeletePublication(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE pub_id = ?`, id); err != nil {
		return fmt.Errorf("delete publication comments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM publications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

const sqliteCommentCols = `id, pub_id, user_id, content, created_at, score, parent_comment`

func (s *SQLite) Comments(ctx context.Context, pubID string, parentID *string, order model.CommentOrder) ([]model.Comment, error) {
	query := `SELECT ` + sqliteCommentCols + ` FROM comments WHERE pub_id = ?`
	args := []any{pubID}
	if parentID != nil {
		query += ` AND parent_comment = ?`
		args = append(args, *parentID)
	}
	query += " " + commentOrderClause(order)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLite) Comment(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, `SELECT `+sqliteCommentCols+` FROM comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch comment: %w", err)
	}
	return &c, nil
}

func (s *SQLite) CreateComment(ctx context.Context, c model.Comment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO comments (`+sqliteCommentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PublicationID, c.AuthorID, c.Content, c.CreatedAt, c.Score, c.ParentID)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteCommentTree(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `WITH RECURSIVE comment_tree(id) AS (
		SELECT id FROM comments WHERE id = ?
		UNION
		SELECT c.id FROM comments c JOIN comment_tree ct ON c.parent_comment = ct.id
	)
	DELETE FROM comments WHERE id IN (SELECT id FROM comment_tree)`, id)
	if err != nil {
		return 0, fmt.Errorf("delete comment tree: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *SQLite) VoteState(ctx context.Context, t Target, userID, itemID string) (vote.State, error) {
	var v int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT vote FROM %s WHERE user_id = ? AND %s = ?`, t.VoteTable, t.Column),
		userID, itemID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return vote.None, nil
	}
	if err != nil {
		return vote.None, fmt.Errorf("fetch %s vote: %w", t.Name, err)
	}
	return vote.FromValue(v), nil
}

func (s *SQLite) ApplyVote(ctx context.Context, t Target, userID, itemID string, cast vote.Direction) (VoteResult, error) {
	var res VoteResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var score int
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT score FROM %s WHERE id = ?`, t.Table), itemID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	if err != nil {
		return res, fmt.Errorf("fetch %s score: %w", t.Name, err)
	}

	var prior int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT vote FROM %s WHERE user_id = ? AND %s = ?`, t.VoteTable, t.Column),
		userID, itemID).Scan(&prior)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return res, fmt.Errorf("fetch %s vote: %w", t.Name, err)
	}

	res.Previous = vote.FromValue(prior)
	next, delta := vote.Transition(res.Previous, cast)
	res.Current = next

	var stmt string
	var args []any
	switch {
	case next == vote.None:
		stmt = fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND %s = ?`, t.VoteTable, t.Column)
		args = []any{userID, itemID}
	case res.Previous == vote.None:
		stmt = fmt.Sprintf(`INSERT INTO %s (user_id, %s, vote) VALUES (?, ?, ?)`, t.VoteTable, t.Column)
		args = []any{userID, itemID, next.Value()}
	default:
		stmt = fmt.Sprintf(`UPDATE %s SET vote = ? WHERE user_id = ? AND %s = ?`, t.VoteTable, t.Column)
		args = []any{next.Value(), userID, itemID}
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return res, fmt.Errorf("write %s vote: %w", t.Name, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET score = score + ? WHERE id = ?`, t.Table), delta, itemID); err != nil {
		return res, fmt.Errorf("update %s score: %w", t.Name, err)
	}
	res.Score = score + delta
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit %s vote: %w", t.Name, err)
	}
	return res, nil
}

func (s *SQLite) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
