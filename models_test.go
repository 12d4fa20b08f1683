package mappify_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/mappify"
	"github.com/syssam/mappify/dialect/sql"
)

type Product struct {
	ID       int64   `db:"id"`
	Name     string  `db:"name"`
	Price    float64 `db:"price"`
	Category string  `db:"category"`
}

type User struct {
	ID      int64    `db:"id"`
	Name    string   `db:"name"`
	Email   string   `db:"email"`
	Profile *Profile `rel:"profile"`
	Posts   []*Post  `rel:"posts"`
}

type Profile struct {
	ID     int64  `db:"id"`
	UserID int64  `db:"user_id"`
	Bio    string `db:"bio"`
}

type Post struct {
	ID     int64  `db:"id"`
	UserID *int64 `db:"user_id"`
	Title  string `db:"title"`
	Author *User  `rel:"author"`
}

type Student struct {
	ID      int64    `db:"id"`
	Name    string   `db:"name"`
	Courses []Course `rel:"courses"`
}

type Course struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}

type Enrollment struct {
	ID        int64 `db:"id"`
	StudentID int64 `db:"student_id"`
	CourseID  int64 `db:"course_id"`
}

// mockClient returns a client over sqlmock with exact statement matching.
func mockClient(t *testing.T, dialect string, opts ...mappify.Option) (*mappify.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mappify.NewClient(sql.OpenDB(dialect, db), opts...), mock
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "price", "category"})
}

// blog declares the user, profile and post models with their associations.
type blog struct {
	users    *mappify.Model[User]
	profiles *mappify.Model[Profile]
	posts    *mappify.Model[Post]
}

func newBlog(t *testing.T, client *mappify.Client) *blog {
	t.Helper()
	b := &blog{
		users:    mappify.MustModel[User](client),
		profiles: mappify.MustModel[Profile](client),
		posts:    mappify.MustModel[Post](client),
	}
	require.NoError(t, b.users.HasOne(b.profiles, mappify.AssocOptions{As: "profile"}))
	require.NoError(t, b.users.HasMany(b.posts, mappify.AssocOptions{As: "posts", ForeignKey: "user_id"}))
	require.NoError(t, b.posts.BelongsTo(b.users, mappify.AssocOptions{As: "author"}))
	return b
}

// school declares the student and course models joined by enrollments.
type school struct {
	students    *mappify.Model[Student]
	courses     *mappify.Model[Course]
	enrollments *mappify.Model[Enrollment]
}

func newSchool(t *testing.T, client *mappify.Client) *school {
	t.Helper()
	s := &school{
		students:    mappify.MustModel[Student](client),
		courses:     mappify.MustModel[Course](client),
		enrollments: mappify.MustModel[Enrollment](client),
	}
	require.NoError(t, s.students.BelongsToMany(s.courses, mappify.AssocOptions{
		As:      "courses",
		Through: s.enrollments,
	}))
	return s
}
