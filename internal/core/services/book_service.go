package services

import (
	"context"
	"errors"
	"log"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/core/domain"

	"gorm.io/gorm"
)

// ErrCopiesInUse is returned when a copy-count change would drop below the
// number of copies currently out on loan.
var ErrCopiesInUse = errors.New("cannot reduce copies below the number currently on loan")

// BookService handles catalog management
type BookService struct {
	bookRepo *repositories.BookRepository
}

// NewBookService creates a new book service
func NewBookService(bookRepo *repositories.BookRepository) *BookService {
	return &BookService{bookRepo: bookRepo}
}

// CreateBookInput represents catalog creation input
type CreateBookInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Author      string `json:"author" validate:"required,max=200"`
	Tag         string `json:"tag" validate:"required"`
	TotalCopies uint   `json:"total_copies" validate:"required,min=1"`
}

// UpdateBookInput represents catalog update input
type UpdateBookInput struct {
	Tag         *string `json:"tag"`
	TotalCopies *uint   `json:"total_copies"`
}

// Create adds a book to the catalog with all copies on the shelf
func (s *BookService) Create(ctx context.Context, input *CreateBookInput) (*models.Book, error) {
	if !domain.Tag(input.Tag).IsValid() {
		return nil, domain.ErrInvalidTag
	}
	if input.TotalCopies == 0 {
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.bookRepo.ExistsByTitleAuthor(ctx, input.Title, input.Author)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrBookAlreadyExists
	}

	book := &models.Book{
		Title:           input.Title,
		Author:          input.Author,
		Tag:             input.Tag,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
	}
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	log.Printf("📖 Book created: %q by %s (%d copies, %s)", book.Title, book.Author, book.TotalCopies, book.Tag)
	return book, nil
}

// GetByID gets a book by ID
func (s *BookService) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// List lists books with pagination
func (s *BookService) List(ctx context.Context, offset, limit int) ([]*models.Book, int64, error) {
	return s.bookRepo.List(ctx, offset, limit)
}

// Update changes a book's tag or copy count. Lowering the copy count
// below the copies currently out is refused.
func (s *BookService) Update(ctx context.Context, id uint, input *UpdateBookInput) (*models.Book, error) {
	book, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Tag != nil {
		if !domain.Tag(*input.Tag).IsValid() {
			return nil, domain.ErrInvalidTag
		}
		book.Tag = *input.Tag
	}

	if input.TotalCopies != nil {
		onLoan := book.TotalCopies - book.AvailableCopies
		if *input.TotalCopies < onLoan {
			return nil, ErrCopiesInUse
		}
		book.AvailableCopies = *input.TotalCopies - onLoan
		book.TotalCopies = *input.TotalCopies
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}

	log.Printf("📖 Book %d updated", book.ID)
	return book, nil
}

// Delete removes a book from the catalog. Copies out on loan block the
// removal.
func (s *BookService) Delete(ctx context.Context, id uint) error {
	book, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if book.AvailableCopies < book.TotalCopies {
		return ErrCopiesInUse
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return err
	}

	log.Printf("📖 Book %d deleted", id)
	return nil
}
