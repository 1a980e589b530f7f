package flowers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/shopspring/decimal"

	"flowershop/internal/domain"
)

const maxUploadBytes = 32 << 20

// FlowerStore is the slice of the flower repository the handlers need.
type FlowerStore interface {
	List(ctx context.Context) ([]domain.Flower, error)
	ListByCategory(ctx context.Context, categoryID domain.CategoryID) ([]domain.Flower, error)
	GetByID(ctx context.Context, id domain.FlowerID) (*domain.Flower, error)
	GetByName(ctx context.Context, name string) (*domain.Flower, error)
	Create(ctx context.Context, flower *domain.Flower, categoryIDs []domain.CategoryID) error
	Update(ctx context.Context, flower *domain.Flower, categoryIDs []domain.CategoryID) error
	Delete(ctx context.Context, id domain.FlowerID) error
	AddImages(ctx context.Context, flowerID domain.FlowerID, images []domain.FlowerImage) error
	GetImage(ctx context.Context, flowerID domain.FlowerID, imageID domain.FlowerImageID) (*domain.FlowerImage, error)
	DeleteImage(ctx context.Context, imageID domain.FlowerImageID) error
}

// CategoryResolver resolves requested category ids against the category store.
type CategoryResolver interface {
	GetByIDs(ctx context.Context, ids []domain.CategoryID) ([]domain.Category, error)
}

// ImageStore holds the uploaded image bytes, addressed only by the path
// derived from flower id and image id.
type ImageStore interface {
	Save(ctx context.Context, path string, r io.Reader) error
	Remove(ctx context.Context, path string) error
}

type Handler struct {
	store      FlowerStore
	categories CategoryResolver
	images     ImageStore
	logger     *slog.Logger
}

func NewHandler(store FlowerStore, categories CategoryResolver, images ImageStore, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		categories: categories,
		images:     images,
		logger:     logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	flowers, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list flowers", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, flowers)
}

func (h *Handler) HandleListByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := domain.CategoryID(r.PathValue("categoryId"))
	if categoryID == "" {
		h.writeError(w, http.StatusBadRequest, "missing category id")
		return
	}

	flowers, err := h.store.ListByCategory(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("failed to list flowers by category", "error", err, "category_id", categoryID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, flowers)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := domain.FlowerID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing flower id")
		return
	}

	flower, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get flower", "error", err, "flower_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if flower == nil {
		h.writeError(w, http.StatusNotFound, "flower not found")
		return
	}

	h.writeJSON(w, http.StatusOK, flower)
}

type createFlowerRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Categories    []string        `json:"categories"`
}

func (req *createFlowerRequest) validate() string {
	if req.Name == "" || len(req.Name) > 255 {
		return "name is required and must be at most 255 characters"
	}
	if len(req.Description) > 1000 {
		return "description must be at most 1000 characters"
	}
	if !req.Price.IsPositive() {
		return "price must be positive"
	}
	if req.StockQuantity < 0 {
		return "stock quantity must not be negative"
	}
	return ""
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createFlowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := h.store.GetByName(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("failed to check flower name", "error", err, "name", req.Name)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing != nil {
		h.writeError(w, http.StatusConflict, "flower already exists under id "+string(existing.ID))
		return
	}

	categories, categoryIDs, ok := h.resolveCategories(w, r, req.Categories)
	if !ok {
		return
	}

	flower := domain.NewFlower(req.Name, req.Description, req.Price, req.StockQuantity)
	flower.Categories = categories

	if err := h.store.Create(r.Context(), flower, categoryIDs); err != nil {
		h.logger.Error("failed to create flower", "error", err, "flower_id", flower.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("flower created", "flower_id", flower.ID, "name", flower.Name)
	h.writeJSON(w, http.StatusCreated, flower)
}

type updateFlowerRequest struct {
	ID string `json:"id"`
	createFlowerRequest
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateFlowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, "missing flower id")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	flower, err := h.store.GetByID(r.Context(), domain.FlowerID(req.ID))
	if err != nil {
		h.logger.Error("failed to get flower", "error", err, "flower_id", req.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if flower == nil {
		h.writeError(w, http.StatusNotFound, "flower not found")
		return
	}

	categories, categoryIDs, ok := h.resolveCategories(w, r, req.Categories)
	if !ok {
		return
	}

	flower.UpdateDetails(req.Name, req.Description, req.Price, req.StockQuantity)
	flower.Categories = categories

	if err := h.store.Update(r.Context(), flower, categoryIDs); err != nil {
		h.logger.Error("failed to update flower", "error", err, "flower_id", flower.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("flower updated", "flower_id", flower.ID, "name", flower.Name)
	h.writeJSON(w, http.StatusOK, flower)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := domain.FlowerID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing flower id")
		return
	}

	flower, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get flower", "error", err, "flower_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if flower == nil {
		h.writeError(w, http.StatusNotFound, "flower not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrFlowerNotFound) {
			h.writeError(w, http.StatusNotFound, "flower not found")
			return
		}
		h.logger.Error("failed to delete flower", "error", err, "flower_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	for _, img := range flower.Images {
		if err := h.images.Remove(r.Context(), img.StoragePath()); err != nil {
			h.logger.Error("failed to remove image file", "error", err, "path", img.StoragePath())
		}
	}

	h.logger.Info("flower deleted", "flower_id", id)
	h.writeJSON(w, http.StatusOK, flower)
}

// HandleUploadImages stores one or more multipart files for a flower. The
// batch is atomic: the image rows are inserted in one transaction and any
// files already written are removed when a later step fails.
func (h *Handler) HandleUploadImages(w http.ResponseWriter, r *http.Request) {
	id := domain.FlowerID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing flower id")
		return
	}

	flower, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get flower", "error", err, "flower_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if flower == nil {
		h.writeError(w, http.StatusNotFound, "flower not found")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	images, err := h.saveFiles(r.Context(), id, files)
	if err != nil {
		h.logger.Error("failed to store image files", "error", err, "flower_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.store.AddImages(r.Context(), id, images); err != nil {
		h.removeFiles(r.Context(), images)
		h.logger.Error("failed to persist image records", "error", err, "flower_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	flower.Images = append(flower.Images, images...)

	h.logger.Info("images uploaded", "flower_id", id, "count", len(images))
	h.writeJSON(w, http.StatusOK, flower)
}

func (h *Handler) saveFiles(ctx context.Context, flowerID domain.FlowerID, files []*multipart.FileHeader) ([]domain.FlowerImage, error) {
	var images []domain.FlowerImage

	for _, header := range files {
		img := domain.NewFlowerImage(flowerID, header.Filename)

		file, err := header.Open()
		if err != nil {
			h.removeFiles(ctx, images)
			return nil, err
		}

		err = h.images.Save(ctx, img.StoragePath(), file)
		_ = file.Close()
		if err != nil {
			h.removeFiles(ctx, images)
			return nil, err
		}

		images = append(images, img)
	}

	return images, nil
}

func (h *Handler) removeFiles(ctx context.Context, images []domain.FlowerImage) {
	for _, img := range images {
		if err := h.images.Remove(ctx, img.StoragePath()); err != nil {
			h.logger.Error("failed to clean up image file", "error", err, "path", img.StoragePath())
		}
	}
}

func (h *Handler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	flowerID := domain.FlowerID(r.PathValue("id"))
	imageID := domain.FlowerImageID(r.PathValue("imageId"))
	if flowerID == "" || imageID == "" {
		h.writeError(w, http.StatusBadRequest, "missing flower or image id")
		return
	}

	flower, err := h.store.GetByID(r.Context(), flowerID)
	if err != nil {
		h.logger.Error("failed to get flower", "error", err, "flower_id", flowerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if flower == nil {
		h.writeError(w, http.StatusNotFound, "flower not found")
		return
	}

	img, err := h.store.GetImage(r.Context(), flowerID, imageID)
	if err != nil {
		h.logger.Error("failed to get image", "error", err, "image_id", imageID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if img == nil {
		h.writeError(w, http.StatusNotFound, "flower image not found")
		return
	}

	if err := h.images.Remove(r.Context(), img.StoragePath()); err != nil {
		h.logger.Error("failed to remove image file", "error", err, "path", img.StoragePath())
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.store.DeleteImage(r.Context(), imageID); err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			h.writeError(w, http.StatusNotFound, "flower image not found")
			return
		}
		h.logger.Error("failed to delete image record", "error", err, "image_id", imageID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	remaining := flower.Images[:0]
	for _, existing := range flower.Images {
		if existing.ID != imageID {
			remaining = append(remaining, existing)
		}
	}
	flower.Images = remaining

	h.logger.Info("image deleted", "flower_id", flowerID, "image_id", imageID)
	h.writeJSON(w, http.StatusOK, flower)
}

// resolveCategories loads the requested categories and fails the request with
// 404 when any id is unknown. It writes the response itself on failure.
func (h *Handler) resolveCategories(w http.ResponseWriter, r *http.Request, ids []string) ([]domain.Category, []domain.CategoryID, bool) {
	categoryIDs := make([]domain.CategoryID, 0, len(ids))
	seen := make(map[domain.CategoryID]struct{}, len(ids))
	for _, id := range ids {
		categoryID := domain.CategoryID(id)
		if _, dup := seen[categoryID]; dup {
			continue
		}
		seen[categoryID] = struct{}{}
		categoryIDs = append(categoryIDs, categoryID)
	}

	if len(categoryIDs) == 0 {
		return []domain.Category{}, categoryIDs, true
	}

	categories, err := h.categories.GetByIDs(r.Context(), categoryIDs)
	if err != nil {
		h.logger.Error("failed to resolve categories", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, nil, false
	}
	if len(categories) != len(categoryIDs) {
		h.writeError(w, http.StatusNotFound, "one or more categories not found")
		return nil, nil, false
	}

	return categories, categoryIDs, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
