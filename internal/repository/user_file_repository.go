package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"fsanano/shopcart/internal/model"

	"go.uber.org/zap"
)

const userRecordFields = 5

// UserFileRepository stores users one per line as
// name,email,password,phoneNumber,age.
type UserFileRepository struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewUserFileRepository(path string, logger *zap.Logger) *UserFileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserFileRepository{path: path, logger: logger}
}

// LoadUsers reads every well-formed record, creating the file when it does
// not exist. Lines without exactly five fields or with a non-integer or
// negative age are skipped.
func (r *UserFileRepository) LoadUsers(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	var users []model.User
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++

		user, ok := parseUserRecord(scanner.Text())
		if !ok {
			r.logger.Debug("skipping malformed user record", zap.String("file", r.path), zap.Int("line", lineNo))
			continue
		}
		users = append(users, user)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	return users, nil
}

// SaveUser appends one record.
func (r *UserFileRepository) SaveUser(ctx context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(formatUserRecord(user)); err != nil {
		return fmt.Errorf("failed to write user record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write user record: %w", err)
	}
	return f.Sync()
}

func formatUserRecord(u model.User) []string {
	return []string{u.Name, u.Email, u.Password, u.PhoneNumber, strconv.Itoa(u.Age)}
}

func parseUserRecord(line string) (model.User, bool) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.LazyQuotes = true
	fields, err := cr.Read()
	if err != nil || len(fields) != userRecordFields {
		// Older records were written unquoted, so a stray quote is just text.
		fields = strings.Split(line, ",")
		if len(fields) != userRecordFields {
			return model.User{}, false
		}
	}

	age, err := strconv.Atoi(fields[4])
	if err != nil || age < 0 {
		return model.User{}, false
	}

	return model.User{
		Name:        fields[0],
		Email:       fields[1],
		Password:    fields[2],
		PhoneNumber: fields[3],
		Age:         age,
	}, true
}
