package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// fakeCourseStore is an in-memory courses.Store for handler tests.
type fakeCourseStore struct {
	mu      sync.Mutex
	courses map[primitive.ObjectID]*models.Course
	videos  map[primitive.ObjectID]*models.Video
}

func newFakeCourseStore() *fakeCourseStore {
	return &fakeCourseStore{
		courses: map[primitive.ObjectID]*models.Course{},
		videos:  map[primitive.ObjectID]*models.Video{},
	}
}

func (f *fakeCourseStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeCourseStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Course
	for _, id := range ids {
		if c, ok := f.courses[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCourseStore) ListPublished(_ context.Context, _, _ string, _, _ int64) ([]models.Course, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Course
	for _, c := range f.courses {
		if c.IsPublished {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCourseStore) Trending(_ context.Context, limit int64) ([]models.Course, error) {
	out, _, err := f.ListPublished(context.Background(), "", "", 1, limit)
	return out, err
}

func (f *fakeCourseStore) ListAll(_ context.Context) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Course
	for _, c := range f.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCourseStore) Insert(_ context.Context, c *models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	cp := *c
	f.courses[c.ID] = &cp
	return nil
}

func (f *fakeCourseStore) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.courses[id]
	return ok, nil
}

func (f *fakeCourseStore) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.courses[id]
	delete(f.courses, id)
	return ok, nil
}

func (f *fakeCourseStore) SetPublished(_ context.Context, id primitive.ObjectID, published bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if ok {
		c.IsPublished = published
	}
	return ok, nil
}

func (f *fakeCourseStore) AddModule(_ context.Context, id primitive.ObjectID, mod models.Module) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.courses[id]; ok {
		c.Modules = append(c.Modules, mod)
	}
	return nil
}

func (f *fakeCourseStore) IncEnrolled(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.courses[id]; ok {
		c.EnrolledCount++
	}
	return nil
}

func (f *fakeCourseStore) SetRatingStats(_ context.Context, id primitive.ObjectID, avg float64, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.courses[id]; ok {
		c.AverageRating = avg
		c.TotalRatings = total
	}
	return nil
}

func (f *fakeCourseStore) CountPublished(_ context.Context) (int64, error) { return 0, nil }
func (f *fakeCourseStore) TotalEnrollment(_ context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeCourseStore) InsertVideo(_ context.Context, v *models.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	cp := *v
	f.videos[v.ID] = &cp
	return nil
}

func (f *fakeCourseStore) FindVideoByID(_ context.Context, id primitive.ObjectID) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.videos[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeCourseStore) VideosByCourse(_ context.Context, courseID primitive.ObjectID) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Video
	for _, v := range f.videos {
		if v.CourseID == courseID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeCourseStore) CountVideosByCourse(_ context.Context, courseID primitive.ObjectID) (int64, error) {
	vs, _ := f.VideosByCourse(context.Background(), courseID)
	return int64(len(vs)), nil
}

func (f *fakeCourseStore) UpdateVideo(_ context.Context, id primitive.ObjectID, _ bson.M) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.videos[id]
	return ok, nil
}

func (f *fakeCourseStore) DeleteVideo(_ context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.videos[id]
	delete(f.videos, id)
	return ok, nil
}

func loginAs(t *testing.T, r *gin.Engine, email, password string) *http.Cookie {
	t.Helper()
	w := postJSON(r, "/api/auth/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	c := cookieByName(w, middleware.AccessCookie)
	require.NotNil(t, c)
	return c
}

func coursesRouter(repo *memRepo, store *fakeCourseStore) *gin.Engine {
	cfg := handlerTestConfig()
	r := gin.New()
	api := r.Group("/api")
	NewAuthHandler(cfg, auth.NewService(cfg, repo), repo, store).Register(api)
	NewCoursesHandler(cfg, store, repo).Register(api)
	NewVideosHandler(cfg, store, repo).Register(api)
	return r
}

func TestListShowsOnlyPublished(t *testing.T) {
	store := newFakeCourseStore()
	pub := &models.Course{Title: "Go", Category: "Web Development", IsPublished: true}
	draft := &models.Course{Title: "Draft", Category: "Design"}
	require.NoError(t, store.Insert(context.Background(), pub))
	require.NoError(t, store.Insert(context.Background(), draft))

	r := coursesRouter(newMemRepo(), store)
	req := httptest.NewRequest("GET", "/api/courses", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Courses []models.Course `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Courses, 1)
	require.Equal(t, "Go", body.Courses[0].Title)
}

func TestEnrollFreeCourse(t *testing.T) {
	repo := newMemRepo()
	u := seedStudent(t, repo, "s@example.com", "hunter22")
	store := newFakeCourseStore()
	course := &models.Course{Title: "Free Go", Category: "Web Development", IsPublished: true, Price: 0}
	require.NoError(t, store.Insert(context.Background(), course))

	r := coursesRouter(repo, store)
	access := loginAs(t, r, "s@example.com", "hunter22")

	w := postJSON(r, "/api/courses/"+course.ID.Hex()+"/enroll", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Contains(t, stored.EnrolledCourses, course.ID)
}

func TestEnrollPaidCourseRejected(t *testing.T) {
	repo := newMemRepo()
	seedStudent(t, repo, "s@example.com", "hunter22")
	store := newFakeCourseStore()
	course := &models.Course{Title: "Paid Go", Category: "Web Development", IsPublished: true, Price: 999}
	require.NoError(t, store.Insert(context.Background(), course))

	r := coursesRouter(repo, store)
	access := loginAs(t, r, "s@example.com", "hunter22")

	w := postJSON(r, "/api/courses/"+course.ID.Hex()+"/enroll", nil, access)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// Videos are gated on enrollment; the catalog entry itself is public.
func TestVideosRequireEnrollment(t *testing.T) {
	repo := newMemRepo()
	seedStudent(t, repo, "s@example.com", "hunter22")
	store := newFakeCourseStore()
	course := &models.Course{Title: "Gated", Category: "Web Development", IsPublished: true, Price: 999}
	require.NoError(t, store.Insert(context.Background(), course))

	r := coursesRouter(repo, store)
	access := loginAs(t, r, "s@example.com", "hunter22")

	req := httptest.NewRequest("GET", "/api/courses/"+course.ID.Hex()+"/videos", nil)
	req.AddCookie(access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminCoursesRequireAdminRole(t *testing.T) {
	repo := newMemRepo()
	seedStudent(t, repo, "s@example.com", "hunter22")
	store := newFakeCourseStore()

	r := coursesRouter(repo, store)
	access := loginAs(t, r, "s@example.com", "hunter22")

	req := httptest.NewRequest("GET", "/api/admin/courses", nil)
	req.AddCookie(access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
