package queue

import "github.com/google/uuid"

// NewJobID returns a random job id.
func NewJobID() string {
	return uuid.NewString()
}

// ChildJobID derives a stable episode job id from its parent feed id and the
// episode URL, so expanding the same feed twice yields the same children.
func ChildJobID(parentID, episodeURL string) string {
	namespace, err := uuid.Parse(parentID)
	if err != nil {
		namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(parentID))
	}
	return uuid.NewSHA1(namespace, []byte(episodeURL)).String()
}
