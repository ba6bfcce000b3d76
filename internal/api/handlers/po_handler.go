package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/domain"
	"github.com/andresuchdata/autopo-go/internal/service"
)

type POHandler struct {
	runService *service.RunService
}

func NewPOHandler(runService *service.RunService) *POHandler {
	return &POHandler{runService: runService}
}

// UploadPO saves the posted files and registers them as uploads
func (h *POHandler) UploadPO(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	uploads := make([]*domain.FileUpload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			log.Error().Err(err).Str("filename", fh.Filename).Msg("failed to open uploaded file")
			continue
		}
		upload, err := h.runService.SaveUpload(c.Request.Context(), fh.Filename, f)
		f.Close()
		if err != nil {
			errorResponse(c, err)
			return
		}
		uploads = append(uploads, upload)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"uploaded_files": uploads,
	})
}

// ProcessPO processes the posted store files synchronously. supplier_file and
// contribution_file replace the saved reference data.
func (h *POHandler) ProcessPO(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	var (
		req     service.ProcessRequest
		toClose []multipart.File
	)
	defer func() {
		for _, f := range toClose {
			f.Close()
		}
	}()

	open := func(fh *multipart.FileHeader) (*service.NamedFile, bool) {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read " + fh.Filename})
			return nil, false
		}
		toClose = append(toClose, f)
		return &service.NamedFile{Name: fh.Filename, Body: f}, true
	}

	for _, fh := range form.File["files"] {
		nf, ok := open(fh)
		if !ok {
			return
		}
		req.Stores = append(req.Stores, *nf)
	}
	if fhs := form.File["supplier_file"]; len(fhs) > 0 {
		nf, ok := open(fhs[0])
		if !ok {
			return
		}
		req.Supplier = nf
	}
	if fhs := form.File["contribution_file"]; len(fhs) > 0 {
		nf, ok := open(fhs[0])
		if !ok {
			return
		}
		req.Contribution = nf
	}

	result, err := h.runService.ProcessUploads(c.Request.Context(), req)
	if err != nil {
		if result != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "stores": result.Stores})
			return
		}
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetResults returns the rows of the last combined result
func (h *POHandler) GetResults(c *gin.Context) {
	rows, err := h.runService.LatestResults()
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// GetSuppliers returns the saved supplier catalog
func (h *POHandler) GetSuppliers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.runService.Suppliers()})
}

// GetContributions returns the saved store contribution table
func (h *POHandler) GetContributions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.runService.Contributions()})
}
