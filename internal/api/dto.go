package api

import (
	"github.com/starford/ehwaz/internal/assetsvc"
	"github.com/starford/ehwaz/internal/models"
)

// StageFileRequest identifies one file in a stage request.
type StageFileRequest struct {
	Filename      string `json:"filename" example:"render.png" validate:"required"`
	Subfolder     string `json:"subfolder" example:"renders"`
	DestSubfolder string `json:"dest_subfolder"`
	Scope         string `json:"type" example:"output" validate:"required"`
	RootID        string `json:"root_id,omitempty"`
}

// StageRequest is the request body for staging files into the input root.
type StageRequest struct {
	Index   bool               `json:"index"`
	Purpose string             `json:"purpose,omitempty" example:"preview"`
	Files   []StageFileRequest `json:"files" validate:"required"`
}

// StagedFileResponse describes one staged copy.
type StagedFileResponse struct {
	Name      string `json:"name" example:"render.png" validate:"required"`
	Subfolder string `json:"subfolder"`
	Path      string `json:"path" example:"/media/input/render.png" validate:"required"`
}

// StageResponse wraps the staged copies.
type StageResponse struct {
	Staged []StagedFileResponse `json:"staged" validate:"required"`
}

// AssetListItem is one asset in a list or search response.
type AssetListItem struct {
	Filename  string       `json:"filename" example:"render.png" validate:"required"`
	Subfolder string       `json:"subfolder"`
	Scope     models.Scope `json:"type" example:"output" validate:"required"`
	Kind      models.Kind  `json:"kind,omitempty" example:"image"`
	Size      int64        `json:"size" example:"12345"`
	Checksum  string       `json:"checksum,omitempty"`
}

// AssetListResponse wraps paginated asset listings.
type AssetListResponse struct {
	Assets []AssetListItem `json:"assets" validate:"required"`
	Total  int             `json:"total" example:"42" validate:"required"`
}

// ArchiveRequest is the request body for starting a batch-export archive.
type ArchiveRequest struct {
	Token string                 `json:"token" validate:"required"`
	Items []assetsvc.ArchiveItem `json:"items" validate:"required"`
}
