package apperrors

var (
	ErrUserNotFound         = NotFound("user profile not found")
	ErrChatNotFound         = NotFound("chat not found")
	ErrNotParticipant       = Forbidden("you are not a participant of this chat")
	ErrNotificationNotFound = NotFound("notification not found")
	ErrStoryNotFound        = NotFound("story not found")
	ErrStoryExpired         = Gone("story has expired")
	ErrNotStoryOwner        = Forbidden("only the story owner can do this")
	ErrPostNotFound         = NotFound("post not found")
	ErrNotPostOwner         = Forbidden("you are not authorized to modify this post")
	ErrNotAPoll             = InvalidArg("post is not a poll")
	ErrPollEnded            = FailedPrecondition("poll has ended")
	ErrNoVoteToRemove       = InvalidArg("you have not voted on this poll")
	ErrBlocked              = Forbidden("interaction with this user is not allowed")
	ErrMissingToken         = Unauthorized("missing or invalid authorization token")
)

var (
	ErrSelfAction            = InvalidArg("you cannot do this to yourself")
	ErrAlreadyFollowing      = AlreadyExists("already following this user")
	ErrNotFollowing          = NotFound("follow relationship not found")
	ErrRequestPending        = AlreadyExists("follow request already pending")
	ErrFollowRequestNotFound = NotFound("follow request not found")
	ErrNotBlocked            = NotFound("user is not blocked")
	ErrAlreadyLiked          = AlreadyExists("post already liked")
	ErrLikeNotFound          = NotFound("like not found")
	ErrCommentNotFound       = NotFound("comment not found")
	ErrNotCommentOwner       = Forbidden("you are not authorized to modify this comment")
	ErrCommentAlreadyLiked   = AlreadyExists("comment already liked")
	ErrCommentLikeNotFound   = NotFound("comment like not found")
	ErrAlreadySaved          = AlreadyExists("post already saved")
	ErrSavedPostNotFound     = NotFound("saved post not found")
	ErrUsernameTaken         = AlreadyExists("username is already taken")
)
