package dto

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries a partial profile edit; absent fields are
// left untouched by the merge write.
type UpdateProfileRequest struct {
	Name     *string   `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	PhotoURL *string   `json:"photoUrl,omitempty"`
	Gender   *string   `json:"gender,omitempty"`
	Bio      *string   `json:"bio,omitempty" binding:"omitempty,max=500"`
	JobTitle *string   `json:"jobTitle,omitempty" binding:"omitempty,max=100"`
	Skills   *[]string `json:"skills,omitempty"`
}

// SendMessageRequest is the payload for appending a chat message. Blank
// text is accepted here; the chat service drops it as a silent no-op.
type SendMessageRequest struct {
	Text string `json:"text" binding:"omitempty,max=4000"`
}

// CreateClassroomRequest is the payload for opening a new classroom.
type CreateClassroomRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Subject  string `json:"subject" binding:"omitempty,max=100"`
	Room     string `json:"room" binding:"omitempty,max=50"`
	Schedule string `json:"schedule" binding:"omitempty,max=100"`
	Color    string `json:"color" binding:"omitempty,max=20"`
}

// JoinClassroomRequest is the payload for joining by code.
type JoinClassroomRequest struct {
	JoinCode string `json:"joinCode" binding:"required,joincode"`
}

// AnnouncementRequest is the payload for posting to a classroom wall.
type AnnouncementRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
	Kind    string `json:"kind" binding:"omitempty,oneof=aviso material tarefa"`
}

// AssignmentRequest is the payload for creating a classroom assignment.
type AssignmentRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"omitempty,max=2000"`
	DueDate     string `json:"dueDate" binding:"required"`
}

// CreatePostRequest is the payload for publishing a feed post. A post
// needs content or media; media-only posts are valid.
type CreatePostRequest struct {
	Content  string `json:"content" binding:"omitempty,max=2000"`
	MediaURL string `json:"mediaUrl" binding:"omitempty,url"`
}

// NotifyRequest is the payload for emitting a notification to a user.
type NotifyRequest struct {
	RecipientUID string `json:"recipientUid" binding:"required"`
	Title        string `json:"title" binding:"required,max=200"`
	Body         string `json:"body" binding:"required,max=2000"`
	Kind         string `json:"kind" binding:"omitempty,oneof=aviso atividade sistema"`
}
