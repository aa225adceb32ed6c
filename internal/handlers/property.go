package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"shortlist/internal/repos"
	"shortlist/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ImageSaver stores an uploaded image and returns its public path.
type ImageSaver interface {
	Save(name string, r io.Reader) (string, error)
}

type PropertyHandler struct {
	properties *services.PropertyService
	scraper    services.ListingScraper
	images     ImageSaver
}

func NewPropertyHandler(properties *services.PropertyService, scraper services.ListingScraper, images ImageSaver) *PropertyHandler {
	return &PropertyHandler{properties: properties, scraper: scraper, images: images}
}

// List handles GET /api/properties?min_price=&max_price=&min_bedrooms=&location=&reduced=&views=&gardens=&outbuildings=&sort=&page=&page_size=
func (h *PropertyHandler) List(c *gin.Context) {
	filter, err := parsePropertyFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	items, err := h.properties.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parsePropertyFilter(c *gin.Context) (repos.PropertyFilter, error) {
	var f repos.PropertyFilter
	var err error

	if f.MinPrice, err = queryFloat(c, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryFloat(c, "max_price"); err != nil {
		return f, err
	}
	if v := c.Query("min_bedrooms"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return f, queryError("invalid min_bedrooms")
		}
		f.MinBedrooms = &n
	}
	f.Location = strings.TrimSpace(c.Query("location"))

	for name, dst := range map[string]**bool{
		"reduced":      &f.Reduced,
		"views":        &f.Views,
		"gardens":      &f.Gardens,
		"outbuildings": &f.Outbuildings,
	} {
		if *dst, err = queryBool(c, name); err != nil {
			return f, err
		}
	}

	switch sort := c.DefaultQuery("sort", repos.SortByScore); sort {
	case repos.SortByScore, repos.SortByPrice, repos.SortByNewest:
		f.Sort = sort
	default:
		return f, queryError("sort must be score, price or newest")
	}

	page := 1
	if p, convErr := strconv.Atoi(c.Query("page")); convErr == nil && p > 0 {
		page = p
	}
	size := defaultPageSize
	if s, convErr := strconv.Atoi(c.Query("page_size")); convErr == nil && s > 0 {
		size = s
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	f.Limit = size
	f.Offset = (page - 1) * size
	return f, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil, queryError("invalid " + name)
	}
	return &f, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, queryError("invalid " + name)
	}
	return &b, nil
}

func (h *PropertyHandler) Create(c *gin.Context) {
	var in services.PropertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.properties.CreateManual(c.Request.Context(), currentUser(c), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type urlInput struct {
	URL string `json:"url"`
}

// CreateFromURL scrapes the listing and stores it.
func (h *PropertyHandler) CreateFromURL(c *gin.Context) {
	var in urlInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.properties.CreateFromURL(c.Request.Context(), currentUser(c), in.URL)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Scrape previews a listing without storing anything.
func (h *PropertyHandler) Scrape(c *gin.Context) {
	var in urlInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	scraped, err := h.scraper.Scrape(c.Request.Context(), in.URL)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scraped)
}

func (h *PropertyHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.properties.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *PropertyHandler) Delete(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.properties.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PropertyHandler) AddFeature(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Feature string `json:"feature"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.properties.AddFeature(c.Request.Context(), currentUser(c), id, in.Feature)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UploadImage handles the multipart "image" field and replaces the
// property's image.
func (h *PropertyHandler) UploadImage(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		badRequest(c, "an image file is required")
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		badRequest(c, "only image files are allowed")
		return
	}
	if header.Size > services.MaxImageBytes {
		badRequest(c, "image must be 10MB or smaller")
		return
	}

	path, err := h.images.Save(header.Filename, file)
	if err != nil {
		RespondError(c, err)
		return
	}
	p, err := h.properties.SetImage(c.Request.Context(), currentUser(c), id, path)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
