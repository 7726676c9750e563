package handlers

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts the endpoints that need no credential.
func (h *Handlers) RegisterPublicRoutes(api *gin.RouterGroup) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts the endpoints behind the auth middleware.
func (h *Handlers) RegisterProtectedRoutes(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/me", h.GetMe)
		users.GET("/recommended", h.RecommendedUsers)
	}

	conversations := api.Group("/conversations")
	{
		conversations.POST("", h.CreateDirectConversation)
		conversations.GET("", h.ListConversations)
		conversations.POST("/group", h.CreateGroupConversation)
		conversations.GET("/:id", h.GetConversation)
		conversations.PUT("/:id/rename", h.RenameConversation)
		conversations.PUT("/:id/members/add", h.AddMember)
		conversations.PUT("/:id/members/remove", h.RemoveMember)
		conversations.GET("/:id/members", h.ListMembers)
		conversations.POST("/:id/leave", h.LeaveConversation)
	}

	messages := api.Group("/messages")
	{
		messages.POST("", h.SendMessage)
		messages.GET("/:conversationId", h.GetMessages)
	}

	posts := api.Group("/posts")
	{
		posts.POST("", h.CreatePost)
		posts.GET("", h.ListPosts)
		posts.GET("/feed", h.GetFeed)
		posts.POST("/:id/like", h.LikePost)
		posts.POST("/:id/dislike", h.DislikePost)
		posts.DELETE("/:id", h.DeletePost)
		posts.POST("/:id/comments", h.CreateComment)
		posts.GET("/:id/comments", h.GetComments)
	}
}
