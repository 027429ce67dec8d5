package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/media"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

// Relayer pushes a stored message to its recipient's live connection.
type Relayer interface {
	Relay(msg models.Message) bool
}

// MessageHandler serves the sidebar, conversation history and send endpoints.
type MessageHandler struct {
	userRepo    repositories.UserRepository
	messageRepo repositories.MessageRepository
	uploader    media.Uploader
	relay       Relayer
}

func NewMessageHandler(userRepo repositories.UserRepository, messageRepo repositories.MessageRepository, uploader media.Uploader, relay Relayer) *MessageHandler {
	return &MessageHandler{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		uploader:    uploader,
		relay:       relay,
	}
}

// ListUsers returns every user except the caller.
func (h *MessageHandler) ListUsers(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	users, err := h.userRepo.ListUsers(c.Request.Context())
	if err != nil {
		log.Printf("list users failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	filtered := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID != userID {
			filtered = append(filtered, u)
		}
	}
	c.JSON(http.StatusOK, gin.H{"filteredUsers": filtered})
}

// GetMessages returns the conversation between the caller and :id.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	otherID := c.Param("id")

	messages, err := h.messageRepo.GetConversation(c.Request.Context(), userID, otherID)
	if err != nil {
		log.Printf("get conversation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"message": messages})
}

type sendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// SendMessage stores a message and then relays it to the recipient.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID := c.GetString(middleware.UserIDKey)
	receiverID := c.Param("id")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" && req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Message text or image is required"})
		return
	}
	if receiverID == senderID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot send a message to yourself"})
		return
	}

	if _, err := h.userRepo.GetByID(c.Request.Context(), receiverID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		log.Printf("lookup receiver failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	imageURL := ""
	if req.Image != "" {
		url, err := h.uploader.Upload(c.Request.Context(), req.Image)
		if err != nil {
			if isImageError(err) {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid image"})
				return
			}
			log.Printf("upload message image failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}
		imageURL = url
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), senderID, receiverID, req.Text, imageURL)
	if err != nil {
		log.Printf("store message failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	h.relay.Relay(msg)
	c.JSON(http.StatusCreated, msg)
}

func isImageError(err error) bool {
	return errors.Is(err, media.ErrInvalidDataURL) ||
		errors.Is(err, media.ErrUnsupportedImage) ||
		errors.Is(err, media.ErrImageTooLarge)
}
