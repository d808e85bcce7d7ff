package albums

import (
	"io"
	"time"
)

// AlbumList is the album overview.
type AlbumList struct {
	Albums []string `json:"albums"`
}

// AlbumView is the content of one album.
type AlbumView struct {
	Name   string  `json:"name"`
	Photos []Photo `json:"photos"`
}

// Photo is one object under an album prefix.
type Photo struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Upload is a file chosen by the user.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}
