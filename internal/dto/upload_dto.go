package dto

// UploadVideoMeta is the JSON metadata part of the multipart upload request.
type UploadVideoMeta struct {
	Gmail       string   `json:"gmail"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Privacy     string   `json:"privacy"`
}

type UploadVideoResponse struct {
	VideoID string `json:"video_id"`
	Gmail   string `json:"gmail"`
}
