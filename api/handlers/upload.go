package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/docketly/docketly-api/config"
	"github.com/docketly/docketly-api/databases"
	"github.com/docketly/docketly-api/models"
)

// maxAttachmentBytes caps a single uploaded file at 25 MB
const maxAttachmentBytes = 25 << 20

// Upload handles attachment uploads and signature generation for direct
// browser uploads
type Upload struct {
	DocDB databases.DocumentDatabase
}

// GenerateSignature generates a signature for Cloudinary uploads
func (u Upload) GenerateSignature(w http.ResponseWriter, r *http.Request) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	uploadPreset := os.Getenv("CLOUDINARY_UPLOAD_PRESET")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")

	// Create the signature
	h := hmac.New(sha1.New, []byte(apiSecret))
	h.Write([]byte("timestamp=" + timestamp + "&upload_preset=" + uploadPreset))
	signature := hex.EncodeToString(h.Sum(nil))

	// Respond with the timestamp and signature
	response := map[string]string{
		"timestamp": timestamp,
		"signature": signature,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// UploadAttachmentHandler uploads a file to Cloudinary server-side and
// records it on the document
func (u Upload) UploadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["document_id"]

	dID, err := primitive.ObjectIDFromHex(docID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		config.ErrorStatus("file is required", http.StatusBadRequest, w, err)
		return
	}
	defer file.Close()
	uploadedBy := r.FormValue("userId")

	cld, err := cloudinary.New()
	if err != nil {
		config.ErrorStatus("failed to initialize cloudinary", http.StatusInternalServerError, w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	resp, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: "docketly/attachments",
	})
	if err != nil {
		config.ErrorStatus("failed to upload attachment", http.StatusBadGateway, w, err)
		return
	}

	attachment := models.Attachment{
		PublicID:   resp.PublicID,
		URL:        resp.SecureURL,
		FileName:   header.Filename,
		Format:     resp.Format,
		Bytes:      int64(resp.Bytes),
		UploadedBy: uploadedBy,
		UploadedAt: primitive.NewDateTimeFromTime(time.Now()),
	}

	_, err = u.DocDB.UpdateOne(context.Background(), bson.M{"_id": dID}, bson.M{
		"$push": bson.M{"attachments": attachment},
		"$set":  bson.M{"updatedAt": primitive.NewDateTimeFromTime(time.Now())},
	})
	if err != nil {
		config.ErrorStatus("failed to record attachment", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("attachment uploaded", "documentId", docID, "publicId", resp.PublicID, "bytes", attachment.Bytes)

	w.WriteHeader(http.StatusCreated)
	b, err := json.Marshal(attachment)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Write(b)
}
