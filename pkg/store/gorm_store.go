package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"noted/pkg/domain"
)

const migrateLockID int64 = 52115211

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ProfileModel{}, &NoteModel{}, &PurchaseModel{}, &ReviewModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM review_models r
				WHERE NOT EXISTS (SELECT 1 FROM note_models n WHERE n.id = r.note_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'review_models'
					AND constraint_name = 'review_models_note_id_fkey'
				) THEN
					ALTER TABLE review_models
					ADD CONSTRAINT review_models_note_id_fkey
					FOREIGN KEY (note_id) REFERENCES note_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure review foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "role", "status", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveProfile creates or updates a user's profile.
func (s *GormStore) SaveProfile(p domain.Profile) error {
	model := profileToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "major", "updated_at"}),
	}).Create(&model).Error
}

// GetProfile returns a user's profile.
func (s *GormStore) GetProfile(userID string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// SaveNote stores or updates a note.
func (s *GormStore) SaveNote(n domain.Note) error {
	model := noteToModel(n)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "course", "price", "updated_at"}),
	}).Create(&model).Error
}

// UpdateNoteDetails edits title/course/price. It never touches rating.
func (s *GormStore) UpdateNoteDetails(id, title, course string, price int64) error {
	return s.db.Model(&NoteModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":      title,
			"course":     course,
			"price":      price,
			"updated_at": time.Now().UTC(),
		}).Error
}

// SetNoteRating writes a rating value unconditionally.
// RecomputeNoteRating should be preferred; this remains the raw primitive.
func (s *GormStore) SetNoteRating(id string, rating float64) error {
	return s.db.Model(&NoteModel{}).Where("id = ?", id).Update("rating", rating).Error
}

// ListNotes returns the full catalog ordered by created_at.
func (s *GormStore) ListNotes() ([]domain.Note, error) {
	return s.listNotes("created_at ASC")
}

// ListNotesByAuthor returns notes filtered by author.
func (s *GormStore) ListNotesByAuthor(authorID string) ([]domain.Note, error) {
	return s.listNotes("created_at ASC", "author_id = ?", authorID)
}

func (s *GormStore) listNotes(order string, conds ...any) ([]domain.Note, error) {
	var models []NoteModel
	tx := s.db.Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Note, 0, len(models))
	for _, m := range models {
		res = append(res, noteFromModel(m))
	}
	return res, nil
}

// GetNote retrieves a note.
func (s *GormStore) GetNote(id string) (domain.Note, bool, error) {
	var model NoteModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Note{}, false, nil
		}
		return domain.Note{}, false, err
	}
	return noteFromModel(model), true, nil
}

// DeleteNote removes the note row; reviews go with it via FK cascade.
// Purchases are kept so buyer history retains its denormalized title/price.
func (s *GormStore) DeleteNote(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ReviewModel{}, "note_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&NoteModel{}, "id = ?", id).Error
	})
}

// SavePurchase records an immutable purchase.
func (s *GormStore) SavePurchase(p domain.Purchase) error {
	model := purchaseToModel(p)
	return s.db.Create(&model).Error
}

// HasPurchase checks whether the buyer already holds this note.
func (s *GormStore) HasPurchase(buyerID, noteID string) (bool, error) {
	var count int64
	if err := s.db.Model(&PurchaseModel{}).
		Where("buyer_id = ? AND note_id = ?", buyerID, noteID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListPurchasesByBuyer returns the buyer's purchases, newest first.
func (s *GormStore) ListPurchasesByBuyer(buyerID string) ([]domain.Purchase, error) {
	var models []PurchaseModel
	if err := s.db.Where("buyer_id = ?", buyerID).
		Order("purchased_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Purchase, 0, len(models))
	for _, m := range models {
		res = append(res, purchaseFromModel(m))
	}
	return res, nil
}

// SaveReview stores a review.
func (s *GormStore) SaveReview(r domain.Review) error {
	model, err := reviewToModel(r)
	if err != nil {
		return err
	}
	return s.db.Create(&model).Error
}

// GetReview retrieves one review.
func (s *GormStore) GetReview(id string) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromModel(model), true, nil
}

// ListReviewsByNote returns reviews for a note, newest first.
func (s *GormStore) ListReviewsByNote(noteID string) ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Where("note_id = ?", noteID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(models))
	for _, m := range models {
		res = append(res, reviewFromModel(m))
	}
	return res, nil
}

// HasReview checks whether the user already reviewed the note.
func (s *GormStore) HasReview(userID, noteID string) (bool, error) {
	var count int64
	if err := s.db.Model(&ReviewModel{}).
		Where("user_id = ? AND note_id = ?", userID, noteID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteReview removes a review.
func (s *GormStore) DeleteReview(id string) error {
	return s.db.Delete(&ReviewModel{}, "id = ?", id).Error
}

// AppendReply adds a reply to the review's thread inside one transaction.
// The review row is locked so concurrent appends serialize instead of
// replacing each other's snapshots of the array.
func (s *GormStore) AppendReply(reviewID string, reply domain.Reply) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model ReviewModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", reviewID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		review := reviewFromModel(model)
		return writeReplies(tx, reviewID, append(review.Replies, reply))
	})
}

// RemoveReply deletes one reply by ID under the same row lock as AppendReply.
// It reports whether the reply was present.
func (s *GormStore) RemoveReply(reviewID, replyID string) (bool, error) {
	var removed bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model ReviewModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", reviewID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		review := reviewFromModel(model)
		kept := make([]domain.Reply, 0, len(review.Replies))
		for _, r := range review.Replies {
			if r.ID == replyID {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		if !removed {
			return nil
		}
		return writeReplies(tx, reviewID, kept)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func writeReplies(tx *gorm.DB, reviewID string, replies []domain.Reply) error {
	if replies == nil {
		replies = []domain.Reply{}
	}
	raw, err := json.Marshal(replies)
	if err != nil {
		return err
	}
	return tx.Model(&ReviewModel{}).Where("id = ?", reviewID).
		Update("replies", datatypes.JSON(raw)).Error
}

// RecomputeNoteRating derives the note's rating from its current review set
// inside one transaction. The note row is locked so concurrent recomputes
// serialize instead of overwriting each other with stale averages.
func (s *GormStore) RecomputeNoteRating(noteID string) (float64, error) {
	var rating float64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var note NoteModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&note, "id = ?", noteID).Error; err != nil {
			return err
		}
		var agg struct {
			Avg   float64
			Count int64
		}
		if err := tx.Model(&ReviewModel{}).
			Where("note_id = ?", noteID).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Scan(&agg).Error; err != nil {
			return err
		}
		if agg.Count == 0 {
			rating = 0
		} else {
			rating = math.Round(agg.Avg*10) / 10
		}
		return tx.Model(&NoteModel{}).Where("id = ?", noteID).
			Update("rating", rating).Error
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	status := domain.UserStatus(m.Status)
	if status == "" {
		status = domain.StatusActive
	}
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Status:       status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func profileToModel(p domain.Profile) ProfileModel {
	return ProfileModel{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Major:       p.Major,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func profileFromModel(m ProfileModel) domain.Profile {
	return domain.Profile{
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Major:       m.Major,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func noteToModel(n domain.Note) NoteModel {
	return NoteModel{
		ID:               n.ID,
		Title:            n.Title,
		Course:           n.Course,
		AuthorID:         n.AuthorID,
		AuthorName:       n.AuthorName,
		Price:            n.Price,
		Rating:           n.Rating,
		OriginalFilename: n.OriginalFilename,
		StorageKey:       n.StorageKey,
		ThumbnailKey:     n.ThumbnailKey,
		PageCount:        n.PageCount,
		SizeBytes:        n.SizeBytes,
		CreatedAt:        n.CreatedAt,
		UpdatedAt:        n.UpdatedAt,
	}
}

func noteFromModel(m NoteModel) domain.Note {
	return domain.Note{
		ID:               m.ID,
		Title:            m.Title,
		Course:           m.Course,
		AuthorID:         m.AuthorID,
		AuthorName:       m.AuthorName,
		Price:            m.Price,
		Rating:           m.Rating,
		OriginalFilename: m.OriginalFilename,
		StorageKey:       m.StorageKey,
		ThumbnailKey:     m.ThumbnailKey,
		PageCount:        m.PageCount,
		SizeBytes:        m.SizeBytes,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func purchaseToModel(p domain.Purchase) PurchaseModel {
	return PurchaseModel{
		ID:          p.ID,
		BuyerID:     p.BuyerID,
		NoteID:      p.NoteID,
		NoteTitle:   p.NoteTitle,
		Price:       p.Price,
		PurchasedAt: p.PurchasedAt,
	}
}

func purchaseFromModel(m PurchaseModel) domain.Purchase {
	return domain.Purchase{
		ID:          m.ID,
		BuyerID:     m.BuyerID,
		NoteID:      m.NoteID,
		NoteTitle:   m.NoteTitle,
		Price:       m.Price,
		PurchasedAt: m.PurchasedAt,
	}
}

func reviewToModel(r domain.Review) (ReviewModel, error) {
	replies := r.Replies
	if replies == nil {
		replies = []domain.Reply{}
	}
	raw, err := json.Marshal(replies)
	if err != nil {
		return ReviewModel{}, err
	}
	return ReviewModel{
		ID:        r.ID,
		NoteID:    r.NoteID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		Replies:   datatypes.JSON(raw),
		CreatedAt: r.CreatedAt,
	}, nil
}

func reviewFromModel(m ReviewModel) domain.Review {
	var replies []domain.Reply
	if len(m.Replies) > 0 {
		_ = json.Unmarshal(m.Replies, &replies)
	}
	if replies == nil {
		replies = []domain.Reply{}
	}
	return domain.Review{
		ID:        m.ID,
		NoteID:    m.NoteID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Rating:    m.Rating,
		Comment:   m.Comment,
		Replies:   replies,
		CreatedAt: m.CreatedAt,
	}
}
