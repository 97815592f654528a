// Command devservice is a local, in-process fixture implementation of
// the Service's REST surface, backed by internal/storage, for exercising
// the uploader without network access to the real control plane. It is
// a standalone gin binary with durable storage for subresource bytes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kavex/Third3D-uploader/internal/config"
	"github.com/Kavex/Third3D-uploader/internal/model"
	"github.com/Kavex/Third3D-uploader/internal/serviceclient"
	"github.com/Kavex/Third3D-uploader/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "directory holding config.yaml (optional)")
	addr := flag.String("addr", "127.0.0.1:8090", "address to listen on")
	dataDir := flag.String("data-dir", "./devservice-data", "directory to hold uploaded file bytes, when running with local storage")
	storageType := flag.String("storage", "", "backing store: \"local\" or \"s3\" (overrides config when set)")
	username := flag.String("user", "testuser", "fixture account username")
	password := flag.String("password", "testpass", "fixture account password")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devservice: load config: %v\n", err)
		os.Exit(1)
	}
	if *storageType != "" {
		cfg.Storage.Type = *storageType
	}

	store, err := newStore(*cfg, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devservice: %v\n", err)
		os.Exit(1)
	}

	svc := newService(store, *username, *password)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	svc.registerRoutes(router)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("devservice: listening on %s, data dir %s\n", *addr, *dataDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "devservice: server error: %v\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}

// newStore picks a storage.Storage implementation by cfg.Storage.Type.
// dataDir overrides cfg.Storage.Local.BasePath for local mode, so the
// -data-dir flag keeps working without a config file on disk.
func newStore(cfg config.Config, dataDir string) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "s3":
		return storage.NewS3(context.Background(), storage.S3Config(cfg.Storage.S3))
	case "", "local":
		local := storage.LocalConfig(cfg.Storage.Local)
		if dataDir != "" {
			local.BasePath = dataDir
		}
		return storage.NewLocal(local)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// service holds the fixture's entire state: one account, the file and
// avatar records the uploader creates, and the storage backend their
// bytes land in.
type service struct {
	store storage.Storage

	username string
	password string

	mu        sync.Mutex
	sessions  map[string]bool // auth cookie -> authenticated
	files     map[string]*model.File
	avatars   map[string]*model.Avatar
	nextFile  int
}

func newService(store storage.Storage, username, password string) *service {
	return &service{
		store:    store,
		username: username,
		password: password,
		sessions: make(map[string]bool),
		files:    make(map[string]*model.File),
		avatars:  make(map[string]*model.Avatar),
	}
}

func (s *service) registerRoutes(r *gin.Engine) {
	r.GET("/auth/user", s.getUser)
	r.GET("/auth", s.checkAuth)
	r.POST("/auth/twofactorauth/:kind/verify", s.verifyTwoFactor)
	r.PUT("/logout", s.logout)

	r.GET("/avatars/:id", s.getAvatar)
	r.POST("/avatars", s.createAvatar)
	r.PUT("/avatars/:id", s.updateAvatar)

	r.POST("/file", s.createFile)
	r.POST("/file/:id", s.createFileVersion)
	r.GET("/file/:id", s.showFile)
	r.DELETE("/file/:id/:version", s.deleteFileVersion)
	r.PUT("/file/:id/:version/:sub/start", s.startUpload)
	r.PUT("/file/:id/:version/:sub/finish", s.finishUpload)

	r.PUT("/put/:id/:version/:sub", s.receiveUpload)
}

// authCookieFrom extracts this fixture's single cookie value the uploader's
// Cookies.Header renders ("auth=...; twoFactorAuth=...").
func authCookieFrom(c *gin.Context) string {
	raw := c.GetHeader("Cookie")
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "auth=") {
			return strings.TrimPrefix(part, "auth=")
		}
	}
	return ""
}

func (s *service) getUser(c *gin.Context) {
	if user, pass, ok := c.Request.BasicAuth(); ok {
		if user != s.username || pass != s.password {
			c.Status(http.StatusUnauthorized)
			return
		}
		token := uuid.NewString()
		s.mu.Lock()
		s.sessions[token] = true
		s.mu.Unlock()

		c.Header("Set-Cookie", "auth="+token)
		c.JSON(http.StatusOK, gin.H{"id": "usr_fixture", "username": s.username})
		return
	}

	token := authCookieFrom(c)
	s.mu.Lock()
	ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": "usr_fixture", "username": s.username})
}

func (s *service) checkAuth(c *gin.Context) {
	token := authCookieFrom(c)
	s.mu.Lock()
	ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Status(http.StatusOK)
}

func (s *service) verifyTwoFactor(c *gin.Context) {
	token := authCookieFrom(c)
	s.mu.Lock()
	s.sessions[token] = true
	s.mu.Unlock()
	c.Header("Set-Cookie", "twoFactorAuth="+uuid.NewString())
	c.Status(http.StatusOK)
}

func (s *service) logout(c *gin.Context) {
	token := authCookieFrom(c)
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	c.Status(http.StatusOK)
}

func (s *service) getAvatar(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	avatar, ok := s.avatars[id]
	var cp model.Avatar
	if ok {
		cp = *avatar
	}
	s.mu.Unlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (s *service) createAvatar(c *gin.Context) {
	var req serviceclient.CreateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if _, exists := s.avatars[req.ID]; exists {
		s.mu.Unlock()
		c.Status(http.StatusInternalServerError) // blueprint id taken, per the real Service's contract
		return
	}
	avatar := &model.Avatar{
		ID:                req.ID,
		Name:              req.Name,
		ImageURL:          req.ImageURL,
		ThumbnailImageURL: req.ImageURL,
		ReleaseStatus:     req.ReleaseStatus,
	}
	s.avatars[req.ID] = avatar
	cp := *avatar
	s.mu.Unlock()

	c.JSON(http.StatusCreated, cp)
}

func (s *service) updateAvatar(c *gin.Context) {
	id := c.Param("id")
	var req serviceclient.UpdateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	avatar, ok := s.avatars[id]
	if !ok {
		s.mu.Unlock()
		c.Status(http.StatusNotFound)
		return
	}
	if req.Name != "" {
		avatar.Name = req.Name
	}
	if req.ImageURL != "" {
		avatar.ImageURL = req.ImageURL
		avatar.ThumbnailImageURL = req.ImageURL
	}
	if req.AssetURL != "" {
		avatar.UnityPackages = upsertPackage(avatar.UnityPackages, model.UnityPackage{
			Platform:     req.Platform,
			Variant:      "standard",
			AssetURL:     req.AssetURL,
			UnityVersion: req.UnityVersion,
			AssetVersion: req.AssetVersion,
		})
	}
	cp := *avatar
	s.mu.Unlock()

	c.JSON(http.StatusOK, cp)
}

func upsertPackage(pkgs []model.UnityPackage, next model.UnityPackage) []model.UnityPackage {
	for i, pkg := range pkgs {
		if pkg.Platform == next.Platform && pkg.Variant == next.Variant {
			pkgs[i] = next
			return pkgs
		}
	}
	return append(pkgs, next)
}

func (s *service) createFile(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		MimeType  string `json:"mimeType"`
		Extension string `json:"extension"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.nextFile++
	id := fmt.Sprintf("file_%04d", s.nextFile)
	file := &model.File{ID: id, MimeType: req.MimeType}
	s.files[id] = file
	cp := *file
	s.mu.Unlock()

	c.JSON(http.StatusCreated, cp)
}

func (s *service) createFileVersion(c *gin.Context) {
	id := c.Param("id")
	var req serviceclient.CreateFileVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	file, ok := s.files[id]
	if !ok {
		s.mu.Unlock()
		c.Status(http.StatusNotFound)
		return
	}
	category := model.CategorySimple
	if req.FileSizeInBytes > 50*1024*1024 {
		category = model.CategoryMultipart
	}
	file.Versions = append(file.Versions, model.FileVersion{
		ID:       fmt.Sprintf("%s_v%d", id, len(file.Versions)+1),
		Status:   model.VersionStatusWaiting,
		Category: category,
	})
	cp := *file
	s.mu.Unlock()

	c.JSON(http.StatusCreated, cp)
}

func (s *service) showFile(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	file, ok := s.files[id]
	var cp model.File
	if ok {
		cp = *file
	}
	s.mu.Unlock()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (s *service) deleteFileVersion(c *gin.Context) {
	id := c.Param("id")
	idx, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	file, ok := s.files[id]
	if !ok || idx < 0 || idx >= len(file.Versions) {
		s.mu.Unlock()
		c.Status(http.StatusNotFound)
		return
	}
	version := file.Versions[idx]
	file.Versions = append(file.Versions[:idx], file.Versions[idx+1:]...)
	s.mu.Unlock()

	prefix := fmt.Sprintf("%s/%s", id, version.ID)
	if err := s.store.DeletePrefix(c.Request.Context(), prefix); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *service) startUpload(c *gin.Context) {
	id, version, sub := c.Param("id"), c.Param("version"), c.Param("sub")
	scheme := "http"
	url := fmt.Sprintf("%s://%s/put/%s/%s/%s", scheme, c.Request.Host, id, version, sub)
	if partNumber := c.Query("partNumber"); partNumber != "" {
		url += "?partNumber=" + partNumber
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *service) receiveUpload(c *gin.Context) {
	id, version, sub := c.Param("id"), c.Param("version"), c.Param("sub")
	key := objectKey(id, version, sub, c.Query("partNumber"))

	if err := s.store.Write(c.Request.Context(), key, c.Request.Body, c.Request.ContentLength, c.ContentType()); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("ETag", fmt.Sprintf("%q", uuid.NewString()))
	c.Status(http.StatusOK)
}

func (s *service) finishUpload(c *gin.Context) {
	id, version, sub := c.Param("id"), c.Param("version"), c.Param("sub")

	s.mu.Lock()
	file, ok := s.files[id]
	if !ok {
		s.mu.Unlock()
		c.Status(http.StatusNotFound)
		return
	}
	for i := range file.Versions {
		if file.Versions[i].ID == version && sub == string(model.SubresourceFile) {
			file.Versions[i].Status = model.VersionStatusComplete
		}
	}
	cp := *file
	s.mu.Unlock()

	c.JSON(http.StatusOK, cp)
}

func objectKey(fileID, version, sub, partNumber string) string {
	if partNumber != "" {
		return fmt.Sprintf("%s/%s/%s/part-%s", fileID, version, sub, partNumber)
	}
	return fmt.Sprintf("%s/%s/%s", fileID, version, sub)
}
