package conversation

// StatusAwaitingLocation marks a record whose questionnaire is exhausted and
// which now waits for the user to share a location. Catalog question ids are
// positive, so the sentinel can never collide with one.
const StatusAwaitingLocation = -1

// Record is the persisted progress of one user's conversation. At most one
// live record exists per user; its presence is what "a conversation is in
// progress" means.
type Record struct {
	UserID        string            `dynamodbav:"userId" json:"userId"`
	Type          string            `dynamodbav:"searchType" json:"searchType"`
	CurrentStatus int               `dynamodbav:"currentStatus" json:"currentStatus"`
	Answers       map[string]string `dynamodbav:"answers" json:"answers"`
	CreatedAt     string            `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt     string            `dynamodbav:"updatedAt" json:"updatedAt"`
	ExpiresAt     int64             `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// AwaitingLocation reports whether every catalog question has been answered.
func (r *Record) AwaitingLocation() bool {
	return r.CurrentStatus == StatusAwaitingLocation
}
