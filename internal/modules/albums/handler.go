package albums

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

type AlbumHandler struct {
	svc *AlbumService
}

func NewAlbumHandler(svc *AlbumService) *AlbumHandler {
	return &AlbumHandler{svc: svc}
}

type createAlbumRequest struct {
	Name string `json:"name" form:"name"`
}

// ListAlbums GET /api/albums — album names in storage order.
func (h *AlbumHandler) ListAlbums(c echo.Context) error {
	list, err := h.svc.ListAlbums(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, list)
}

// CreateAlbum POST /api/albums — reserves the album and returns its empty view.
func (h *AlbumHandler) CreateAlbum(c echo.Context) error {
	var req createAlbumRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	view, err := h.svc.CreateAlbum(c.Request().Context(), req.Name)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, view)
}

// ViewAlbum GET /api/albums/:album — photos of one album.
func (h *AlbumHandler) ViewAlbum(c echo.Context) error {
	album, err := pathParam(c, "album")
	if err != nil {
		return err
	}

	view, err := h.svc.ViewAlbum(c.Request().Context(), album)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, view)
}

// DeleteAlbum DELETE /api/albums/:album — removes every photo and the marker,
// then returns the refreshed album list.
func (h *AlbumHandler) DeleteAlbum(c echo.Context) error {
	album, err := pathParam(c, "album")
	if err != nil {
		return err
	}

	list, err := h.svc.DeleteAlbum(c.Request().Context(), album)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, list)
}

// AddPhoto POST /api/albums/:album/photos — streams the "file" form field into the album.
func (h *AlbumHandler) AddPhoto(c echo.Context) error {
	album, err := pathParam(c, "album")
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			_, err = h.svc.AddPhoto(c.Request().Context(), album, nil)
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "field 'file' is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot open uploaded file")
	}
	defer src.Close()

	contentType, err := detectContentType(src, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	view, err := h.svc.AddPhoto(c.Request().Context(), album, &Upload{
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		Body:        src,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, view)
}

// DeletePhoto DELETE /api/albums/:album/photos?key=<photo key>
func (h *AlbumHandler) DeletePhoto(c echo.Context) error {
	album, err := pathParam(c, "album")
	if err != nil {
		return err
	}

	view, err := h.svc.DeletePhoto(c.Request().Context(), album, c.QueryParam("key"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, view)
}

// PhotoURL GET /api/albums/:album/photos/url?key=<photo key>&ttl=<duration>
func (h *AlbumHandler) PhotoURL(c echo.Context) error {
	album, err := pathParam(c, "album")
	if err != nil {
		return err
	}

	var ttl time.Duration
	if v := c.QueryParam("ttl"); v != "" {
		ttl, err = time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ttl")
		}
	}

	u, err := h.svc.PhotoURL(c.Request().Context(), album, c.QueryParam("key"), ttl)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"url": u})
}

// SummarizeAlbum GET /api/albums/:album/summary
func (h *AlbumHandler) SummarizeAlbum(c echo.Context) error {
	album, err := pathParam(c, "album")
	if err != nil {
		return err
	}

	summary, err := h.svc.SummarizeAlbum(c.Request().Context(), album)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"album": album, "summary": summary})
}

// pathParam returns the decoded path parameter. echo routes on RawPath when
// the request carries one, leaving parameters escaped in that case.
func pathParam(c echo.Context, name string) (string, error) {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v, nil
	}

	decoded, err := url.PathUnescape(v)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return decoded, nil
}

// detectContentType trusts the client-supplied type unless it is missing or
// generic, in which case the first bytes are sniffed and the file rewound.
func detectContentType(src multipart.File, header string) (string, error) {
	if header != "" && header != "application/octet-stream" {
		return header, nil
	}

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return mt.String(), nil
}

func httpError(err error) error {
	switch KindOf(err) {
	case KindValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case KindAlreadyExists:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case KindDisabled:
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
