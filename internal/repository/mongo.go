package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt,
	}
}

type courseDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Subject      string             `bson:"subject"`
	Number       string             `bson:"number"`
	Title        string             `bson:"title"`
	Term         string             `bson:"term"`
	InstructorID string             `bson:"instructorId"`
	StudentIDs   []string           `bson:"studentIds"`
}

func (d *courseDocument) toDomain() *domain.Course {
	studentIDs := d.StudentIDs
	if studentIDs == nil {
		studentIDs = make([]string, 0)
	}
	return &domain.Course{
		ID:           d.ID.Hex(),
		Subject:      d.Subject,
		Number:       d.Number,
		Title:        d.Title,
		Term:         d.Term,
		InstructorID: d.InstructorID,
		StudentIDs:   studentIDs,
	}
}

type assignmentDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	CourseID string             `bson:"courseId"`
	Title    string             `bson:"title"`
	Points   int32              `bson:"points"`
	Due      time.Time          `bson:"due"`
}

// MongoRepository 使用 users、courses、assignments 三个集合保存数据，_id 为 ObjectID，
// 对外暴露时转换为十六进制字符串
type MongoRepository struct {
	cfg         *config.Config
	users       *mongo.Collection
	courses     *mongo.Collection
	assignments *mongo.Collection
}

func NewMongoRepository(cfg *config.Config, db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		cfg:         cfg,
		users:       db.Collection("users"),
		courses:     db.Collection("courses"),
		assignments: db.Collection("assignments"),
	}
}

func (m *MongoRepository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(m.cfg.Database.QueryTimeout)*time.Second)
}

// EnsureIndexes 创建邮箱唯一索引以及按教师、学生查询课程所需的索引
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	if _, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	if _, err := m.courses.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "instructorId", Value: 1}}},
		{Keys: bson.D{{Key: "studentIds", Value: 1}}},
	}); err != nil {
		return err
	}

	_, err := m.assignments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "courseId", Value: 1}},
	})
	return err
}

func (m *MongoRepository) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	var doc userDocument
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (m *MongoRepository) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	doc := userDocument{
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		Role:      string(user.Role),
		CreatedAt: time.Now().UTC(),
	}

	result, err := m.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return err
	}

	user.ID = result.InsertedID.(primitive.ObjectID).Hex()
	user.CreatedAt = doc.CreatedAt
	return nil
}

func (m *MongoRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return m.findUser(ctx, bson.M{"_id": oid})
}

func (m *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *MongoRepository) CheckEmailIfExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	n, err := m.users.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *MongoRepository) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	cursor, err := m.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

func (m *MongoRepository) findCourses(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Course, error) {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	if opts == nil {
		opts = options.Find()
	}
	opts.SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := m.courses.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []courseDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	courses := make([]*domain.Course, 0, len(docs))
	for i := range docs {
		courses = append(courses, docs[i].toDomain())
	}
	return courses, nil
}

func (m *MongoRepository) CountCourses(ctx context.Context) (int64, error) {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	return m.courses.CountDocuments(ctx, bson.M{})
}

func (m *MongoRepository) GetCoursesPage(ctx context.Context, offset, limit int) ([]*domain.Course, error) {
	return m.findCourses(ctx, bson.M{}, options.Find().SetSkip(int64(offset)).SetLimit(int64(limit)))
}

func (m *MongoRepository) GetCoursesByInstructor(ctx context.Context, instructorID string) ([]*domain.Course, error) {
	return m.findCourses(ctx, bson.M{"instructorId": instructorID}, nil)
}

func (m *MongoRepository) GetCoursesByStudent(ctx context.Context, studentID string) ([]*domain.Course, error) {
	// 对数组字段做等值匹配即表示数组中包含该元素
	return m.findCourses(ctx, bson.M{"studentIds": studentID}, nil)
}

func (m *MongoRepository) CreateCourse(ctx context.Context, course *domain.Course) error {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	if course.StudentIDs == nil {
		course.StudentIDs = make([]string, 0)
	}

	result, err := m.courses.InsertOne(ctx, courseDocument{
		Subject:      course.Subject,
		Number:       course.Number,
		Title:        course.Title,
		Term:         course.Term,
		InstructorID: course.InstructorID,
		StudentIDs:   course.StudentIDs,
	})
	if err != nil {
		return err
	}

	course.ID = result.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (m *MongoRepository) GetCourseByID(ctx context.Context, id string) (*domain.Course, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	var doc courseDocument
	if err := m.courses.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (m *MongoRepository) GetCourseInstructorID(ctx context.Context, id string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", domain.ErrNotFound
	}

	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	var doc struct {
		InstructorID string `bson:"instructorId"`
	}
	opts := options.FindOne().SetProjection(bson.M{"instructorId": 1})
	if err := m.courses.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return doc.InstructorID, nil
}

func (m *MongoRepository) UpdateCourse(ctx context.Context, course *domain.Course) error {
	oid, err := primitive.ObjectIDFromHex(course.ID)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	if course.StudentIDs == nil {
		course.StudentIDs = make([]string, 0)
	}

	update := bson.M{"$set": bson.M{
		"subject":      course.Subject,
		"number":       course.Number,
		"title":        course.Title,
		"term":         course.Term,
		"instructorId": course.InstructorID,
		"studentIds":   course.StudentIDs,
	}}

	result, err := m.courses.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteCourse(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	result, err := m.courses.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}

	_, err = m.assignments.DeleteMany(ctx, bson.M{"courseId": id})
	return err
}

func (m *MongoRepository) CreateAssignment(ctx context.Context, assignment *domain.Assignment) error {
	if _, err := m.GetCourseByID(ctx, assignment.CourseID); err != nil {
		return err
	}

	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	result, err := m.assignments.InsertOne(ctx, assignmentDocument{
		CourseID: assignment.CourseID,
		Title:    assignment.Title,
		Points:   assignment.Points,
		Due:      assignment.Due,
	})
	if err != nil {
		return err
	}

	assignment.ID = result.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (m *MongoRepository) GetAssignmentsByCourse(ctx context.Context, courseID string) ([]*domain.Assignment, error) {
	ctx, cancel := m.queryContext(ctx)
	defer cancel()

	cursor, err := m.assignments.Find(ctx, bson.M{"courseId": courseID}, options.Find().SetSort(bson.D{{Key: "due", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []assignmentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	assignments := make([]*domain.Assignment, 0, len(docs))
	for _, d := range docs {
		assignments = append(assignments, &domain.Assignment{
			ID:       d.ID.Hex(),
			CourseID: d.CourseID,
			Title:    d.Title,
			Points:   d.Points,
			Due:      d.Due,
		})
	}
	return assignments, nil
}
