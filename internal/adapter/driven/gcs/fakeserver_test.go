package gcs

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeObject is one stored object plus the metadata sent with its upload.
type fakeObject struct {
	data         []byte
	contentType  string
	cacheControl string
}

// fakeGCS answers the subset of the Cloud Storage JSON and XML APIs that
// Store uses: multipart upload, media read, object get and object delete.
type fakeGCS struct {
	t      *testing.T
	bucket string

	mu      sync.Mutex
	objects map[string]fakeObject
}

func newFakeGCS(t *testing.T, bucket string) (*fakeGCS, *httptest.Server) {
	t.Helper()
	f := &fakeGCS{t: t, bucket: bucket, objects: make(map[string]fakeObject)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGCS) object(name string) (fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[name]
	return obj, ok
}

func (f *fakeGCS) put(name string, obj fakeObject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = obj
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jsonPrefix := "/storage/v1/b/" + f.bucket + "/o/"
	uploadPath := "/upload/storage/v1/b/" + f.bucket + "/o"
	xmlPrefix := "/" + f.bucket + "/"

	switch {
	case r.Method == http.MethodPost && r.URL.Path == uploadPath:
		f.upload(w, r)
	case strings.HasPrefix(r.URL.Path, jsonPrefix):
		name := strings.TrimPrefix(r.URL.Path, jsonPrefix)
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("alt") == "media" {
				f.media(w, name)
				return
			}
			f.attrs(w, name)
		case http.MethodDelete:
			f.delete(w, name)
		default:
			f.t.Errorf("unexpected %s %s", r.Method, r.URL)
			http.Error(w, "unsupported", http.StatusBadRequest)
		}
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, xmlPrefix):
		f.media(w, strings.TrimPrefix(r.URL.Path, xmlPrefix))
	default:
		f.t.Errorf("unexpected %s %s", r.Method, r.URL)
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func (f *fakeGCS) upload(w http.ResponseWriter, r *http.Request) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		f.t.Errorf("upload content type %q: %v", r.Header.Get("Content-Type"), err)
		http.Error(w, "bad upload", http.StatusBadRequest)
		return
	}

	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var meta struct {
		Name         string `json:"name"`
		ContentType  string `json:"contentType"`
		CacheControl string `json:"cacheControl"`
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mediaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(mediaPart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.put(meta.Name, fakeObject{data: data, contentType: meta.ContentType, cacheControl: meta.CacheControl})
	f.writeObject(w, meta.Name, len(data), meta.ContentType)
}

func (f *fakeGCS) attrs(w http.ResponseWriter, name string) {
	obj, ok := f.object(name)
	if !ok {
		notFound(w)
		return
	}
	f.writeObject(w, name, len(obj.data), obj.contentType)
}

func (f *fakeGCS) media(w http.ResponseWriter, name string) {
	obj, ok := f.object(name)
	if !ok {
		notFound(w)
		return
	}
	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
	_, _ = w.Write(obj.data)
}

func (f *fakeGCS) delete(w http.ResponseWriter, name string) {
	f.mu.Lock()
	_, ok := f.objects[name]
	delete(f.objects, name)
	f.mu.Unlock()

	if !ok {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeGCS) writeObject(w http.ResponseWriter, name string, size int, contentType string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"kind":        "storage#object",
		"bucket":      f.bucket,
		"name":        name,
		"size":        strconv.Itoa(size),
		"contentType": contentType,
		"generation":  "1",
	})
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
}
