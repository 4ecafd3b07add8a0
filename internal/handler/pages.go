package handler

import (
    "bytes"
    "errors"
    "io"
    "io/fs"
    "net/http"
    "os"
    "path"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services/internal/guard"
)

// Pages serves the built web app.  A path that names no file falls back to
// index.html so client-side routes load the app shell.
type Pages struct {
    FS fs.FS
}

func NewPages(root string) *Pages {
    return &Pages{FS: os.DirFS(root)}
}

// Serve: GET /*.  The file is resolved from guard.CleanPath, the same path
// the page guard classified.
func (p *Pages) Serve(c echo.Context) error {
    name := strings.TrimPrefix(guard.CleanPath(c.Request().URL.Path), "/")
    if name == "" {
        name = "index.html"
    }
    if st, err := fs.Stat(p.FS, name); err == nil && st.IsDir() {
        name = path.Join(name, "index.html")
    }
    if _, err := fs.Stat(p.FS, name); err != nil {
        if !errors.Is(err, fs.ErrNotExist) {
            return err
        }
        // Asset requests keep their 404; everything else gets the shell.
        if ext := path.Ext(name); ext != "" && ext != ".html" {
            return echo.ErrNotFound
        }
        name = "index.html"
    }
    return p.serveFile(c, name)
}

func (p *Pages) serveFile(c echo.Context, name string) error {
    f, err := p.FS.Open(name)
    if err != nil {
        if errors.Is(err, fs.ErrNotExist) {
            return echo.ErrNotFound
        }
        return err
    }
    defer f.Close()

    st, err := f.Stat()
    if err != nil {
        return err
    }
    if st.IsDir() {
        return echo.ErrNotFound
    }
    rs, ok := f.(io.ReadSeeker)
    if !ok {
        raw, err := io.ReadAll(f)
        if err != nil {
            return err
        }
        rs = bytes.NewReader(raw)
    }
    http.ServeContent(c.Response(), c.Request(), st.Name(), st.ModTime(), rs)
    return nil
}

// NoPages answers when WEB_ROOT is not configured.
func NoPages(c echo.Context) error {
    return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
}
